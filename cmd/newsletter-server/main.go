// Package main provides the newsletter server executable with the HTTP API.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coregx/newsletter"
	gomailer "github.com/coregx/newsletter/adapters/gomail"
	"github.com/coregx/newsletter/adapters/relica"
	"github.com/coregx/newsletter/cmd/newsletter-server/internal/api"
	"github.com/coregx/newsletter/cmd/newsletter-server/internal/config"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// SimpleLogger implements newsletter.Logger for standard logging.
type SimpleLogger struct{}

func (l *SimpleLogger) Debugf(format string, args ...interface{}) {
	log.Printf("[DEBUG] "+format, args...)
}
func (l *SimpleLogger) Infof(format string, args ...interface{}) {
	log.Printf("[INFO] "+format, args...)
}
func (l *SimpleLogger) Warnf(format string, args ...interface{}) {
	log.Printf("[WARN] "+format, args...)
}
func (l *SimpleLogger) Errorf(format string, args ...interface{}) {
	log.Printf("[ERROR] "+format, args...)
}
func (l *SimpleLogger) Info(message string) {
	log.Printf("[INFO] %s", message)
}

func main() {
	log.Println("🚀 Starting Newsletter Server v0.1.0...")

	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("📝 Configuration loaded:")
	log.Printf("   Server: %s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("   Database: %s (%s)", cfg.Database.Driver, cfg.Database.Database)
	log.Printf("   Mail mode: %s", cfg.Mail.Mode)
	log.Printf("   Base URL: %s", cfg.Newsletter.BaseURL)

	// Connect to database
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.GetDSN())
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Printf("Failed to close database: %v", closeErr)
		}
	}()

	// Test connection
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("✅ Database connection established")

	// Create logger
	logger := &SimpleLogger{}

	// Create repository and migrator using Relica adapters
	var repo *relica.SubscriberRepository
	var migrator *relica.SchemaMigrator
	if cfg.Database.Prefix != "" {
		repo = relica.NewSubscriberRepositoryWithPrefix(db, cfg.Database.Driver, cfg.Database.Prefix)
		migrator = relica.NewSchemaMigratorWithPrefix(db, cfg.Database.Driver, cfg.Database.Prefix)
	} else {
		repo = relica.NewSubscriberRepository(db, cfg.Database.Driver)
		migrator = relica.NewSchemaMigrator(db, cfg.Database.Driver)
	}
	log.Println("✅ Repository initialized (Relica adapter)")

	// Create mailer
	mailer, err := buildMailer(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create mailer: %v", err)
	}

	// Create LifecycleManager
	opts := []newsletter.LifecycleOption{
		newsletter.WithRepository(repo),
		newsletter.WithSchemaEnsurer(migrator),
		newsletter.WithMailer(mailer),
		newsletter.WithLifecycleLogger(logger),
		newsletter.WithConfirmTokenTTL(time.Duration(cfg.Newsletter.ConfirmTokenTTLHours) * time.Hour),
		newsletter.WithUnsubscribeTokenTTL(time.Duration(cfg.Newsletter.UnsubscribeTokenTTLDays) * 24 * time.Hour),
	}
	if cfg.Newsletter.TokenSecret != "" {
		signer, err := newsletter.NewSignedTokenCodec(cfg.Newsletter.TokenSecret)
		if err != nil {
			log.Fatalf("Failed to create token codec: %v", err)
		}
		opts = append(opts, newsletter.WithSigner(signer))
	} else {
		log.Println("⚠️  NEWSLETTER_TOKEN_SECRET not set; one-click unsubscribe links disabled")
	}

	manager, err := newsletter.NewLifecycleManager(opts...)
	if err != nil {
		log.Fatalf("Failed to create lifecycle manager: %v", err)
	}
	log.Println("✅ LifecycleManager created")

	// Create API handler
	handler := api.NewHandler(manager, logger, cfg.Newsletter.BaseURL, cfg.Newsletter.WebhookToken)

	// Setup HTTP routes
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/subscribe", handler.HandleSubscribe)
	mux.HandleFunc("/api/v1/confirm", handler.HandleConfirm)
	mux.HandleFunc("/api/v1/unsubscribe", handler.HandleUnsubscribe)
	mux.HandleFunc("/api/v1/webhooks/postmark", handler.HandlePostmarkWebhook)
	mux.HandleFunc("/api/v1/subscribers", handler.HandleListSubscribers)
	mux.HandleFunc("/api/v1/stats", handler.HandleStats)
	mux.HandleFunc("/api/v1/health", handler.HandleHealth)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      loggingMiddleware(mux, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		log.Printf("🌐 HTTP server listening on %s", addr)
		log.Println("📡 API Endpoints:")
		log.Println("   POST /api/v1/subscribe")
		log.Println("   GET  /api/v1/confirm?token=...")
		log.Println("   GET|POST /api/v1/unsubscribe")
		log.Println("   POST /api/v1/webhooks/postmark")
		log.Println("   GET  /api/v1/subscribers?status=...")
		log.Println("   GET  /api/v1/stats")
		log.Println("   GET  /api/v1/health")
		log.Println()
		log.Println("✅ Newsletter Server is ready!")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server stopped gracefully")
}

// buildMailer selects the mailer implementation from configuration.
func buildMailer(cfg *config.Config, logger newsletter.Logger) (newsletter.Mailer, error) {
	switch cfg.Mail.Mode {
	case "smtp":
		return gomailer.NewMailer(gomailer.Config{
			Host:     cfg.Mail.SMTPHost,
			Port:     cfg.Mail.SMTPPort,
			Username: cfg.Mail.SMTPUser,
			Password: cfg.Mail.SMTPPassword,
			From:     cfg.Mail.From,
			BaseURL:  cfg.Newsletter.BaseURL,
			Subject:  cfg.Mail.Subject,
		})
	case "none":
		return &newsletter.NoopMailer{}, nil
	default:
		return newsletter.NewLoggingMailer(logger), nil
	}
}

// loggingMiddleware logs HTTP requests.
func loggingMiddleware(next http.Handler, logger newsletter.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger.Infof("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
		logger.Debugf("%s %s - %v", r.Method, r.URL.Path, time.Since(start))
	})
}
