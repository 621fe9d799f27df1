package main

import (
	"log"
	"net/http"

	"varaus-payments/internal/config"
	"varaus-payments/internal/db"
	"varaus-payments/internal/logger"
	"varaus-payments/internal/middleware"
	"varaus-payments/internal/order"
	"varaus-payments/internal/payment"
	"varaus-payments/internal/payment/webhook"
)

func setupRouter(cfg *config.Config, h *webhook.Handler) http.Handler {
	mux := http.NewServeMux()

	// The payment processor calls these back; they carry their own
	// checksum authentication, so no JWT in front of them.
	mux.HandleFunc("/payments/return", h.ReturnHandler)
	mux.HandleFunc("/payments/notify", h.NotifyHandler)

	// Initiation is for our own reservation backend only.
	mux.Handle("/payments/initiate",
		middleware.RequireServiceAuth(cfg.JWTSecret, http.HandlerFunc(h.InitiateHandler)))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return logger.RequestIDMiddleware(
		middleware.RateLimitMiddleware(
			logger.LoggingMiddleware(mux)))
}

func main() {
	cfg := config.LoadConfig()

	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := db.InitDB(cfg)
	defer database.Close()

	orderRepo := order.NewRepository(database)
	orderSvc := order.NewService(orderRepo)

	eventRepo := payment.NewRepository(database)
	gateway := payment.NewCeeposGateway(cfg, orderSvc, eventRepo)

	handler := webhook.NewHandler(gateway, orderSvc)

	log.Printf("🚀 Payment server running at http://localhost:%s/", cfg.AppPort)
	log.Fatal(http.ListenAndServe(":"+cfg.AppPort, setupRouter(cfg, handler)))
}
