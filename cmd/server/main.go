// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/jason-s-yu/qspy/internal/game"
	"github.com/jason-s-yu/qspy/internal/handlers"
	"github.com/jason-s-yu/qspy/internal/metrics"
	"github.com/jason-s-yu/qspy/internal/middleware"
	"github.com/jason-s-yu/qspy/internal/version"
	"github.com/jason-s-yu/qspy/internal/words"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	if version.IsSet() {
		logger.Infof("protocol version %s", version.Current())
	} else {
		logger.Warn("no protocol version compiled in; clients will be rejected on version checks")
	}

	packs, err := words.BuiltinPacks()
	if err != nil {
		log.Fatalf("loading word packs: %v", err)
	}
	prompts, err := words.BuiltinSuggestions()
	if err != nil {
		log.Fatalf("loading suggestions: %v", err)
	}

	if err := metrics.ConnectRedis(); err != nil {
		logger.Warnf("redis unavailable, events disabled: %v", err)
	}

	dir, err := game.NewDirectory(logger, packs, prompts)
	if err != nil {
		log.Fatalf("init room directory: %v", err)
	}
	dir.StartPruning(context.Background())

	mux := http.NewServeMux()

	logged := middleware.LogMiddleware(logger)
	versioned := handlers.VersionMiddleware

	// room endpoints
	mux.Handle("/api/exists", logged(versioned(http.HandlerFunc(
		handlers.ExistsHandler(dir),
	))))
	mux.Handle("/api/room", logged(versioned(http.HandlerFunc(
		handlers.RoomHandler(logger, dir),
	))))
	mux.Handle("/api/join", logged(versioned(http.HandlerFunc(
		handlers.JoinHandler(dir),
	))))
	mux.Handle("/api/stats", logged(http.HandlerFunc(
		handlers.StatsHandler(),
	)))

	// room websocket
	mux.Handle("/ws", logged(http.HandlerFunc(
		handlers.RoomWSHandler(logger, dir),
	)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
