package httpapi

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/graborgan/internal/config"
	"github.com/example/graborgan/internal/dispatch"
	"github.com/example/graborgan/internal/geoclient"
	"github.com/example/graborgan/internal/ingest"
	"github.com/example/graborgan/internal/monitor"
	"github.com/example/graborgan/internal/payments"
	"github.com/example/graborgan/internal/positions"
	"github.com/example/graborgan/internal/storage"
	"github.com/example/graborgan/internal/tracking"
	"github.com/example/graborgan/internal/upstream"
)

type Server struct {
	cfg    config.ServerConfig
	logger *slog.Logger

	Geo        geoclient.Geo
	Sessions   *tracking.Registry
	Deliveries *upstream.DeliveryClient
	Drivers    *upstream.DriverClient
	Recipients *upstream.RecipientClient
	Matches    *upstream.MatchClient
	Monitor    *monitor.Monitor
	WSReg      *dispatch.WSRegistry
	Notifier   *dispatch.WebhookNotifier
	Kafka      *ingest.KafkaProducer
	Store      storage.HistoryStore
	Fleet      positions.Cache
	Billing    *payments.StripeClient

	// delivery-fee holds keyed by order, captured or released later
	holdsMu sync.Mutex
	holds   map[string]string

	mux *mux.Router
}

// NewServer wires the gateway from config with sensible fallbacks: Redis
// and Kafka are optional, Postgres falls back to the in-memory store.
func NewServer(cfg config.ServerConfig, logger *slog.Logger) *Server {
	deliveries := upstream.NewDeliveryClient(cfg.DeliveryInfoURL)
	drivers := upstream.NewDriverClient(cfg.DriverInfoURL)

	var fleet positions.Cache
	if cfg.RedisAddr != "" {
		fleet = positions.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisGeoKey)
	} else {
		fleet = positions.NewIndex()
	}

	var store storage.HistoryStore
	if cfg.PGDSN != "" {
		if ps, err := storage.NewPostgresStore(cfg.PGDSN); err == nil {
			store = ps
		} else {
			logger.Warn("postgres unavailable, falling back to memory store", "error", err)
		}
	}
	if store == nil {
		store = storage.NewMemoryStore()
	}

	var kp *ingest.KafkaProducer
	if len(cfg.KafkaBrokers) > 0 {
		kp = ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	}

	s := &Server{
		cfg:        cfg,
		logger:     logger,
		Geo:        geoclient.New(cfg.GeoAlgoURL, cfg.LocationURL),
		Sessions:   tracking.NewRegistry(),
		Deliveries: deliveries,
		Drivers:    drivers,
		Recipients: upstream.NewRecipientClient(cfg.RecipientURL, cfg.LabReportURL),
		Matches:    upstream.NewMatchClient(cfg.MatchURL, cfg.OrderURL),
		Monitor:    monitor.New(drivers, deliveries, deliveries, logger, cfg.PollInterval),
		WSReg:      dispatch.NewWSRegistry(),
		Notifier:   dispatch.NewWebhookNotifier(cfg.NotifyURL),
		Kafka:      kp,
		Store:      store,
		Fleet:      fleet,
		Billing:    payments.NewStripeClient(),
		holds:      make(map[string]string),
		mux:        mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.mux.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/deliveries", s.handleListDeliveries).Methods("GET")
	api.HandleFunc("/deliveries/{orderID}", s.handleGetDelivery).Methods("GET")
	api.HandleFunc("/deliveries/{orderID}", s.handleDeleteDelivery).Methods("DELETE")
	api.HandleFunc("/deliveries/{orderID}/end", s.handleEndDelivery).Methods("POST")

	api.HandleFunc("/deliveries/{orderID}/track", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/deliveries/{orderID}/track", s.handleGetSession).Methods("GET")
	api.HandleFunc("/deliveries/{orderID}/track", s.handleDisposeSession).Methods("DELETE")
	api.HandleFunc("/deliveries/{orderID}/track/start", s.handleStartSession).Methods("POST")
	api.HandleFunc("/deliveries/{orderID}/track/pause", s.handlePauseSession).Methods("POST")
	api.HandleFunc("/deliveries/{orderID}/track/reset", s.handleResetSession).Methods("POST")

	api.HandleFunc("/recipients", s.handleListRecipients).Methods("GET")
	api.HandleFunc("/recipients/{recipientID}/lab-reports", s.handleLabReports).Methods("GET")
	api.HandleFunc("/recipients/{recipientID}/matches", s.handleMatches).Methods("GET")
	api.HandleFunc("/matches/{matchID}/confirm", s.handleConfirmMatch).Methods("POST")
	api.HandleFunc("/organ-requests", s.handleRequestOrgan).Methods("POST")
	api.HandleFunc("/orders", s.handleCreateOrder).Methods("POST")

	api.HandleFunc("/drivers/{driverID}", s.handleGetDriver).Methods("GET")
	api.HandleFunc("/drivers/{driverID}/monitor", s.handleStartMonitor).Methods("POST")
	api.HandleFunc("/drivers/{driverID}/monitor", s.handleStopMonitor).Methods("DELETE")
	api.HandleFunc("/drivers/{driverID}/alert", s.handleDriverAlert).Methods("GET")
	api.HandleFunc("/drivers/{driverID}/acknowledge", s.handleAcknowledge).Methods("POST")

	api.HandleFunc("/fleet", s.handleFleet).Methods("GET")

	s.mux.HandleFunc("/ws/deliveries/{orderID}", s.handleWS)
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

// Shutdown disposes all live sessions and background pollers.
func (s *Server) Shutdown() {
	s.Sessions.Shutdown()
	s.Monitor.Shutdown()
	if s.Kafka != nil {
		_ = s.Kafka.Close()
	}
}

var upgrader = websocket.Upgrader{}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderID"]
	if _, err := s.Sessions.Get(orderID); err != nil {
		http.Error(w, "no tracking session", http.StatusNotFound)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "upgrade failed", http.StatusBadRequest)
		return
	}
	s.WSReg.Add(orderID, conn)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newID() string { b := make([]byte, 8); _, _ = rand.Read(b); return hex.EncodeToString(b) }
