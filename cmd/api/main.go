package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"voice-relations-go/internal/analysis"
	"voice-relations-go/internal/engine"
	"voice-relations-go/internal/logger"
	"voice-relations-go/internal/processor"
	"voice-relations-go/internal/server"
	"voice-relations-go/internal/store"
)

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.WithField("service", "voice-relations-go").Info("starting service")

	dbPath := envOr("DB_PATH", "relations.db")
	st, err := store.New(dbPath)
	if err != nil {
		log.WithError(err).Fatal("failed to open store")
	}
	defer st.Close()
	log.WithField("db_path", dbPath).Info("store ready")

	eng := engine.New(st, analysis.NewAnalyzer(), engine.NopSink{})
	proc := processor.New(st, analysis.NewTranscriber(), eng)

	addr := fmt.Sprintf(":%s", envOr("PORT", "8080"))
	srv := server.New(st, proc, addr)
	if err := srv.Run(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server terminated")
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
