package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tsiory/mpanampy/internal/assistant"
	"github.com/tsiory/mpanampy/internal/config"
	"github.com/tsiory/mpanampy/internal/httpapi"
	"github.com/tsiory/mpanampy/internal/knowledge"
	"github.com/tsiory/mpanampy/internal/kvstore"
	"github.com/tsiory/mpanampy/internal/locale"
	"github.com/tsiory/mpanampy/internal/matching"
	"github.com/tsiory/mpanampy/internal/observability"
	"github.com/tsiory/mpanampy/internal/suggest"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	kv, err := kvstore.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("kv store init failed: %v", err)
	}
	defer kv.Close()

	// A broken knowledge base must not take the widget down: every
	// query simply falls back to the contact message for the session.
	corpus, err := knowledge.Load(ctx, cfg.KnowledgeBasePath)
	if err != nil {
		log.Printf("knowledge base unavailable (%v); assistant will answer with fallbacks", err)
		corpus = knowledge.NewCorpus(nil)
	} else {
		log.Printf("knowledge base loaded: %d entries from %s", corpus.Len(), cfg.KnowledgeBasePath)
	}

	defaultLang, err := locale.Parse(cfg.DefaultLanguage)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	widgets := assistant.NewManager(assistant.ManagerConfig{
		DefaultLanguage:   defaultLang,
		ReplyDelay:        cfg.ReplyDelay,
		SuggestionCount:   cfg.SuggestionCount,
		InactivityTimeout: cfg.WidgetInactivityTimeout,
	}, matching.NewEngine(corpus), kv, suggest.NewRotator(), metrics)

	api := httpapi.New(cfg, widgets, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	widgets.StartJanitor(runCtx, time.Minute)

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
