package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prudhvinik1/equiptrack/internal/metrics"
	"github.com/prudhvinik1/equiptrack/internal/services"
	"go.uber.org/zap"
)

const (
	SaveEquipmentPath = "/api/save-equipment"
	EquipmentDataPath = "/equipment_data.json"
)

type RouterConfig struct {
	Log                *zap.Logger
	Auth               *services.AuthService
	Equipment          *services.EquipmentService
	MaxBodyBytes       int64
	RequireAuthForSave bool
}

func NewRouter(cfg RouterConfig) *chi.Mux {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(RequestLogger(log))
	router.Use(middleware.Recoverer)
	router.Use(metrics.Middleware)

	// Health check endpoints
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeText(w, http.StatusOK, "OK")
	})
	router.Method(http.MethodGet, "/metrics", metrics.Handler())

	authHandler := NewAuthHandler(cfg.Auth, log)
	router.Post("/api/login", authHandler.Login)
	router.Post("/api/logout", authHandler.Logout)
	router.Get("/api/session", authHandler.Session)

	equipmentHandler := NewEquipmentHandler(cfg.Equipment, log, cfg.MaxBodyBytes)
	var save http.Handler = http.HandlerFunc(equipmentHandler.SaveEquipment)
	if cfg.RequireAuthForSave {
		save = RequireSession(cfg.Auth, log)(save)
	}
	router.Handle(SaveEquipmentPath, PostOnly(save))
	router.Get(EquipmentDataPath, equipmentHandler.GetEquipment)

	return router
}
