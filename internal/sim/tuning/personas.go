package tuning

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"agora.ai/internal/protocol"
)

type personasFile struct {
	Personas []protocol.Persona `yaml:"personas"`
}

func LoadPersonas(path string) ([]protocol.Persona, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f personasFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("personas.yaml: %w", err)
	}
	if err := ValidateRoster(f.Personas); err != nil {
		return nil, err
	}
	return f.Personas, nil
}

// ValidateRoster enforces the fatal roster constraints: at least one agent,
// non-empty unique names.
func ValidateRoster(personas []protocol.Persona) error {
	if len(personas) == 0 {
		return fmt.Errorf("empty agent roster")
	}
	seen := make(map[string]struct{}, len(personas))
	for _, p := range personas {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return fmt.Errorf("persona with empty name")
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate agent name %q", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}
