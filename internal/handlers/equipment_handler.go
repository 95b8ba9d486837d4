package handlers

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/prudhvinik1/equiptrack/internal/repositories"
	"github.com/prudhvinik1/equiptrack/internal/services"
	"go.uber.org/zap"
)

// defaultMaxBodyBytes applies when no limit is configured.
const defaultMaxBodyBytes = 100 * 1024

type EquipmentHandler struct {
	svc          *services.EquipmentService
	log          *zap.Logger
	maxBodyBytes int64
}

func NewEquipmentHandler(svc *services.EquipmentService, log *zap.Logger, maxBodyBytes int64) *EquipmentHandler {
	if log == nil {
		log = zap.NewNop()
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return &EquipmentHandler{svc: svc, log: log, maxBodyBytes: maxBodyBytes}
}

// SaveEquipment overwrites the stored record with the request body.
// Method filtering is done by PostOnly. Bodies that are not sent as
// application/json are not read, and an empty object is stored instead.
func (h *EquipmentHandler) SaveEquipment(w http.ResponseWriter, r *http.Request) {
	var body []byte
	if isJSONRequest(r) {
		var err error
		body, err = io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeError(w, http.StatusRequestEntityTooLarge, "Payload too large")
				return
			}
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	} else {
		h.log.Debug("ignoring non-JSON body", zap.String("content_type", r.Header.Get("Content-Type")))
	}

	// A started write runs to completion even if the client goes away.
	ctx := context.WithoutCancel(r.Context())

	if err := h.svc.Save(ctx, body); err != nil {
		if errors.Is(err, services.ErrInvalidPayload) {
			writeError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		h.log.Error("Error saving data", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to save data")
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// GetEquipment serves the last saved record as stored.
func (h *EquipmentHandler) GetEquipment(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.svc.Load(r.Context())
	if errors.Is(err, repositories.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if err != nil {
		h.log.Error("Error loading data", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load data")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if !snapshot.UpdatedAt.IsZero() {
		w.Header().Set("Last-Modified", snapshot.UpdatedAt.UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(snapshot.Payload)
}

func isJSONRequest(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}
