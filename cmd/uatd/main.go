package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	elog "github.com/labstack/gommon/log"

	"github.com/xiaot623/uatdesk/internal/adapter/email"
	"github.com/xiaot623/uatdesk/internal/adapter/llm"
	"github.com/xiaot623/uatdesk/internal/config"
	"github.com/xiaot623/uatdesk/internal/hub"
	"github.com/xiaot623/uatdesk/internal/notify"
	"github.com/xiaot623/uatdesk/internal/policy"
	store "github.com/xiaot623/uatdesk/internal/repository"
	"github.com/xiaot623/uatdesk/internal/service"
	handler "github.com/xiaot623/uatdesk/internal/transport/http"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (defaults to $UAT_CONFIG)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Starting uatd...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseURL)
	log.Printf("Public base URL: %s", cfg.PublicBaseURL)

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize policy engine
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize notification dispatcher
	emailClient := email.NewClient(cfg.EmailAPIURL, cfg.EmailAPIKey, cfg.EmailTimeout)
	if !emailClient.Configured() {
		log.Printf("WARN: email API key not set, session updates will report not configured")
	}
	llmClient := llm.NewLLMClient(cfg.LiteLLMURL, cfg.LiteLLMAPIKey, cfg.LLMTimeout)
	if llmClient == nil {
		log.Printf("LiteLLM URL not set, email summaries disabled")
	}
	dispatcher := notify.NewDispatcher(emailClient, llmClient, notify.Options{
		From:          cfg.EmailFrom,
		PublicBaseURL: cfg.PublicBaseURL,
		LLMModel:      cfg.LLMModel,
	})

	// Initialize hub
	h := hub.NewHub()
	go h.Run(ctx)
	wsServer := hub.NewServer(h, hub.Options{
		PingInterval:   cfg.WSPingInterval,
		WriteTimeout:   cfg.WSWriteTimeout,
		ReadTimeout:    cfg.WSReadTimeout,
		MaxMessageSize: cfg.WSMaxMessageSize,
	})

	// Initialize service
	svc := service.New(db, policyEngine, dispatcher, h)

	// Create Echo server
	server := handler.NewServer(svc, wsServer)
	server.Logger.SetLevel(logLevel(cfg.LogLevel))

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("API started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down uatd...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}
	// Closes every live subscription.
	stop()

	log.Println("uatd stopped")
}

func logLevel(level string) elog.Lvl {
	switch strings.ToLower(level) {
	case "debug":
		return elog.DEBUG
	case "warn":
		return elog.WARN
	case "error":
		return elog.ERROR
	case "off":
		return elog.OFF
	default:
		return elog.INFO
	}
}
