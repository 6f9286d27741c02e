package main

import (
	"log"
	"net/http"
	"time"

	"cardforge/internal/api"
	"cardforge/internal/config"
	"cardforge/internal/db"
	"cardforge/internal/llm"
	"cardforge/internal/services"
)

func main() {
	cfg := config.Load()

	conn, err := db.Open(cfg.Database)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer conn.Close()

	var provider llm.Provider
	switch {
	case cfg.OpenAIKey != "":
		provider = llm.NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIEndpoint)
		log.Printf("using openai backend (model %s)", cfg.OpenAIModel)
	case cfg.CommandKey != "":
		provider = llm.NewCommandProvider(cfg.CommandKey, cfg.CommandBaseURL, cfg.CommandModel)
		log.Printf("using command backend")
	default:
		log.Printf("warning: no provider API key configured; generation will report failures")
	}

	generatorService := services.NewGeneratorService(provider)
	fileService := services.NewFileService()
	exportService := services.NewExportService()
	setService := services.NewSetService(conn)

	server := api.NewServer(generatorService, fileService, exportService, setService)
	mux := http.NewServeMux()
	mux.Handle("/api", server.Handler())
	mux.Handle("/api/", server.Handler())

	log.Printf("listening on :%s", cfg.Port)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 180 * time.Second,
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server failed: %v", err)
	}
}
