package protocol

import "strings"

var kindSet = func() map[string]struct{} {
	m := make(map[string]struct{})
	for _, k := range ActionKinds() {
		m[k] = struct{}{}
	}
	return m
}()

// NormalizeKind maps raw kind text onto the fixed action set. Unknown kinds
// report ok=false; callers downgrade those to KindPass.
func NormalizeKind(raw string) (kind string, ok bool) {
	k := strings.ToLower(strings.TrimSpace(raw))
	k = strings.Trim(k, "[]`'\" ")
	if _, found := kindSet[k]; found {
		return k, true
	}
	return KindPass, false
}

// SanitizeTarget strips the bracket/underscore decoration reasoning backends
// tend to add around agent names ("[Dr_Chen]" -> "Dr Chen").
func SanitizeTarget(raw string) string {
	t := strings.NewReplacer("[", "", "]", "", "_", " ").Replace(raw)
	return strings.Join(strings.Fields(t), " ")
}

// IsKnownKind reports whether kind is in the fixed action set verbatim.
func IsKnownKind(kind string) bool {
	_, ok := kindSet[kind]
	return ok
}
