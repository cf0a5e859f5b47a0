package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	server "loot-brawl/server"
	"loot-brawl/server/logging"
	loggingSinks "loot-brawl/server/logging/sinks"
)

// Run wires the logging router, room registry, and HTTP surface together and
// serves until the listener fails.
func Run(ctx context.Context) error {
	logCfg := logging.DefaultConfig()
	if raw := os.Getenv("LOG_SINKS"); raw != "" {
		logCfg.EnabledSinks = splitSinks(raw)
	}
	if raw := os.Getenv("LOG_JSON_PATH"); raw != "" {
		logCfg.JSON.FilePath = raw
		if !logCfg.HasSink("json") {
			logCfg.EnabledSinks = append(logCfg.EnabledSinks, "json")
		}
	}

	var sinks []logging.NamedSink
	if logCfg.HasSink("console") {
		sinks = append(sinks, logging.NamedSink{Name: "console", Sink: loggingSinks.NewConsoleSink(os.Stdout)})
	}
	if logCfg.HasSink("json") {
		jsonSink, err := loggingSinks.NewJSONSink(logCfg.JSON)
		if err != nil {
			return fmt.Errorf("failed to open json sink: %w", err)
		}
		sinks = append(sinks, logging.NamedSink{Name: "json", Sink: jsonSink})
	}

	router := logging.NewRouter(logging.SystemClock{}, logCfg, sinks)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := router.Close(closeCtx); err != nil {
			log.Printf("failed to close logging router: %v", err)
		}
	}()

	cfg := server.DefaultConfig()
	cfg.Publisher = router
	if raw := os.Getenv("MATCH_DURATION_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.MatchDuration = time.Duration(value) * time.Second
		} else {
			log.Printf("invalid MATCH_DURATION_SECONDS=%q: %v", raw, err)
		}
	}
	if raw := os.Getenv("LOOT_INTERVAL_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.LootInterval = time.Duration(value) * time.Second
		} else {
			log.Printf("invalid LOOT_INTERVAL_SECONDS=%q: %v", raw, err)
		}
	}

	registry := server.NewRegistry(cfg)
	defer registry.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", server.NewWSHandler(registry))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/diagnostics", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		payload := struct {
			Rooms   []server.RoomInfo   `json:"rooms"`
			Logging logging.RouterStats `json:"logging"`
		}{
			Rooms:   registry.Rooms(),
			Logging: router.Stats(),
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Printf("failed to encode diagnostics: %v", err)
		}
	})

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{Addr: addr, Handler: mux}
	log.Printf("server listening on %s", srv.Addr)

	if err := srv.ListenAndServe(); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func splitSinks(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
