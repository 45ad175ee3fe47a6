package main

import (
	"context"
	"crypto/tls"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flashcards/internal/auth"
	"flashcards/internal/sentry"
	"flashcards/internal/server"
	"flashcards/internal/storage"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/acme/autocert"
)

const shutdownTimeout = 30 * time.Second

// Version is injected via ldflags.
var Version = "dev"

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	domain := os.Getenv("DOMAIN_NAME")
	insecureKeys := os.Getenv("INSECURE_KEYS") == "true" || domain == ""

	enabled, err := sentry.Init(os.Getenv("SENTRY_DSN"), getenv("SENTRY_ENVIRONMENT", "development"), Version)
	if err != nil {
		log.Printf("Sentry init failed: %v", err)
	}
	if enabled {
		defer sentry.Flush(2 * time.Second)
	}

	// 1. Initialize Database
	store, err := storage.NewSQLiteStore(getenv("DB_PATH", "flashcards.db"))
	if err != nil {
		sentry.CaptureError(err, "Failed to initialize database")
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	if os.Getenv("SEED") == "true" {
		if err := store.Seed(); err != nil {
			log.Printf("Seeding failed: %v", err)
		}
	}

	// 2. Token issuer
	tokens, err := auth.NewTokenIssuer(auth.TokenConfig{AllowInsecureKeys: insecureKeys})
	if err != nil {
		log.Fatalf("Failed to initialize token issuer: %v", err)
	}

	api := server.NewAPI(store, tokens, getenv("API_PREFIX", "/api"))

	// 3. Configure TLS & Autocert (if applicable)
	var (
		tlsConfig       *tls.Config
		autocertManager *autocert.Manager
		addr            = getenv("LISTEN_ADDR", ":3000")
	)
	if domain != "" {
		log.Printf("Configuring HTTPS/TLS for domain: %s", domain)
		cacheDir := "certs"
		if err := os.MkdirAll(cacheDir, 0700); err != nil {
			log.Fatalf("Failed to create cert cache dir: %v", err)
		}

		autocertManager = &autocert.Manager{
			Cache:      autocert.DirCache(cacheDir),
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(domain),
			Email:      os.Getenv("EMAIL"),
		}
		tlsConfig = autocertManager.TLSConfig()
		addr = getenv("LISTEN_ADDR", ":443")
	} else {
		log.Printf("DOMAIN_NAME not set. Starting in HTTP-only mode (Local Dev).")
	}

	serverErrors := make(chan error, 2)

	apiServer := server.NewServer(addr, api.Handler(), tlsConfig)
	go func() {
		if err := apiServer.Start(); err != nil {
			serverErrors <- err
		}
	}()

	// HTTP-01 challenges and redirect to HTTPS
	var redirectServer *http.Server
	if autocertManager != nil {
		redirectServer = &http.Server{
			Addr:              ":80",
			Handler:           autocertManager.HTTPHandler(nil),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Println("Redirect Server listening on :80 (HTTP)")
			if err := redirectServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				serverErrors <- err
			}
		}()
	}

	// Wait for interrupt or server error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("Received signal %v, initiating graceful shutdown...", sig)
	case err := <-serverErrors:
		sentry.CaptureError(err, "Server error")
		log.Printf("Server error: %v, initiating shutdown...", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if redirectServer != nil {
		if err := redirectServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Redirect server shutdown error: %v", err)
		}
	}
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("API server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}
