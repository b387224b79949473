// Command server runs the CC prediction-market engine: pseudonymous
// accounts stake CC on binary claims, trade shares against a pooled price,
// and resolve through decentralized, stake-weighted oracle reports.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ccmarkets/engine/internal/advisor"
	"github.com/ccmarkets/engine/internal/api"
	"github.com/ccmarkets/engine/internal/auth"
	"github.com/ccmarkets/engine/internal/compliance"
	"github.com/ccmarkets/engine/internal/config"
	"github.com/ccmarkets/engine/internal/market"
	"github.com/ccmarkets/engine/internal/oracle"
	"github.com/ccmarkets/engine/internal/settlement"
	"github.com/ccmarkets/engine/internal/store/filestore"
	"github.com/ccmarkets/engine/internal/trade"
	"github.com/ccmarkets/engine/internal/ws"
)

func main() {
	log.Println("===========================================")
	log.Println("  CC Prediction Market Engine")
	log.Println("===========================================")

	cfg := config.Load()
	log.Printf("Starting server on port %s", cfg.Port)
	log.Printf("Persistence: %v (dir: %s)", cfg.PersistenceEnabled, cfg.DataDir)

	st := filestore.New(filestore.Config{
		Enabled:      cfg.PersistenceEnabled,
		DataDir:      cfg.DataDir,
		SaveInterval: cfg.SaveInterval,
	})
	log.Println("✓ Persistent data store initialized")

	authProvider := auth.NewProvider(cfg.JWTSecret, cfg.JWTIssuer, 24*time.Hour)
	log.Println("✓ Auth provider initialized")

	advisorClient := advisor.NewClient(cfg.AdvisorBaseURL, cfg.AdvisorAPIKey, cfg.AdvisorTimeout)
	log.Println("✓ Advisor client initialized")

	complianceRecorder := compliance.New(st)
	log.Println("✓ Compliance recorder initialized")

	hub := ws.NewHub()
	go hub.Run()
	log.Println("✓ WebSocket hub started")

	marketRegistry := market.New(st, advisorClient)
	tradeEngine := trade.New(st)
	settlementEngine := settlement.New(st)
	oracleEngine := oracle.New(st, settlementEngine, cfg.IPHMACSecret)

	handler := api.NewHandler(st, authProvider, marketRegistry, tradeEngine, oracleEngine, settlementEngine, complianceRecorder, hub)
	router := api.NewRouter(handler, authProvider, cfg.CORSAllowedOrigins)

	mainRouter := http.NewServeMux()
	mainRouter.HandleFunc("/ws", hub.ServeWS)
	mainRouter.Handle("/", router)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("✓ Server listening on http://localhost:%s", cfg.Port)
		log.Println("Press Ctrl+C to stop")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	st.Stop()
	log.Println("✓ Data persisted")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server stopped gracefully")
}
