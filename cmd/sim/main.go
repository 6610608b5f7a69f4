package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	persistlog "agora.ai/internal/persistence/log"
	"agora.ai/internal/persistence/runindex"
	"agora.ai/internal/protocol"
	"agora.ai/internal/sim/engine"
	"agora.ai/internal/sim/tuning"
	"agora.ai/internal/transport/ws"
)

func main() {
	var (
		addr         = flag.String("addr", ":8080", "http listen address")
		settingsPath = flag.String("settings", "./configs/settings.yaml", "settings yaml path")
		personasPath = flag.String("personas", "./configs/personas.yaml", "persona roster yaml path")
		dataDir      = flag.String("data", "./data", "runtime data directory")
		runID        = flag.String("run_id", "", "run id (default: run_<unix>)")
		disableDB    = flag.Bool("disable_db", false, "disable the sqlite run index")
		scripted     = flag.Bool("scripted", false, "use built-in scripted deciders instead of websocket clients")
		waitClients  = flag.Duration("wait_clients", 30*time.Second, "how long to wait for all reasoning clients before starting")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[sim] ", log.LstdFlags|log.Lmicroseconds)

	settings, err := tuning.Load(*settingsPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("settings not found (%s); using defaults", *settingsPath)
			settings = tuning.Defaults()
		} else {
			logger.Fatalf("load settings: %v", err)
		}
	}
	personas, err := tuning.LoadPersonas(*personasPath)
	if err != nil {
		logger.Fatalf("load personas: %v", err)
	}

	id := strings.TrimSpace(*runID)
	if id == "" {
		id = fmt.Sprintf("run_%d", time.Now().Unix())
	}
	runDir := filepath.Join(*dataDir, "runs", id)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		logger.Fatalf("run dir: %v", err)
	}

	narrLog, err := persistlog.NewNarrativeLogger(runDir)
	if err != nil {
		logger.Fatalf("narrative log: %v", err)
	}
	defer narrLog.Close()
	sinks := []engine.NarrativeSink{narrLog}

	// Optional: read-model index (does not affect run determinism).
	var idx *runindex.SQLiteIndex
	if !*disableDB {
		idx, err = runindex.OpenSQLite(filepath.Join(runDir, "index.db"), id)
		if err != nil {
			logger.Fatalf("open run index: %v", err)
		}
		defer idx.Close()
		sinks = append(sinks, idx)
	}

	ctx, cancel := signalContext()
	defer cancel()

	var deciders map[string]engine.Decider
	var hub *ws.Hub
	if *scripted {
		deciders = scriptedDeciders(personas)
	} else {
		hub = ws.NewHub(settings, personas, logger)
		deciders = hub.Deciders()

		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
			rw.WriteHeader(200)
			_, _ = rw.Write([]byte("ok"))
		})
		mux.HandleFunc("/v1/ws", hub.Handler())

		srv := &http.Server{
			Addr:              *addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Fatalf("ListenAndServe: %v", err)
			}
		}()
		defer func() {
			ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel2()
			_ = srv.Shutdown(ctx2)
		}()
		logger.Printf("listening on %s; waiting for %d reasoning clients", *addr, len(personas))
		waitForClients(ctx, hub, len(personas), *waitClients, logger)
	}

	ctrl, err := engine.New(engine.Config{
		Settings: settings,
		Personas: personas,
		Deciders: deciders,
		Log:      logger,
		Sinks:    sinks,
	})
	if err != nil {
		logger.Fatalf("configuration: %v", err)
	}

	res, err := ctrl.Run(ctx)
	if err != nil {
		logger.Fatalf("run aborted: %v", err)
	}
	if hub != nil {
		hub.Shutdown(res.Turns, res.Reason)
	}

	if idx != nil {
		if err := idx.WriteFinal(res, ctrl.Ledger(), ctrl.Roster()); err != nil {
			logger.Printf("run index: write final: %v", err)
		}
		if err := idx.SetMeta("reason", res.Reason); err != nil {
			logger.Printf("run index: set meta: %v", err)
		}
		idx.Flush()
	}

	out, _ := json.Marshal(res)
	fmt.Println(string(out))
	logger.Printf("run %s finished: turns=%d reason=%s", id, res.Turns, res.Reason)
}

func waitForClients(ctx context.Context, hub *ws.Hub, want int, maxWait time.Duration, logger *log.Logger) {
	deadline := time.Now().Add(maxWait)
	for hub.Connected() < want {
		if time.Now().After(deadline) {
			logger.Printf("starting with %d/%d clients attached", hub.Connected(), want)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// scriptedDeciders builds a local greedy policy per persona: take the
// cheapest affordable improvement, otherwise pass.
func scriptedDeciders(personas []protocol.Persona) map[string]engine.Decider {
	out := make(map[string]engine.Decider, len(personas))
	for _, p := range personas {
		out[p.Name] = engine.DeciderFunc(func(ctx context.Context, obs protocol.ObsMsg) (protocol.ActionRequest, error) {
			var best protocol.AffordabilityObs
			found := false
			for _, a := range obs.Observation.Affordability {
				if !a.Affordable || a.Resource == "" {
					continue
				}
				if !found || a.Cost < best.Cost {
					best = a
					found = true
				}
			}
			if !found {
				return protocol.ActionRequest{Kind: protocol.KindPass, Reason: "nothing affordable"}, nil
			}
			return protocol.ActionRequest{Kind: best.Kind, Reason: "cheapest available improvement"}, nil
		})
	}
	return out
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
