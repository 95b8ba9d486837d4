package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prudhvinik1/equiptrack/internal/metrics"
	"github.com/prudhvinik1/equiptrack/internal/models"
	"github.com/prudhvinik1/equiptrack/internal/repositories"
	"go.uber.org/zap"
)

var ErrInvalidPayload = errors.New("invalid JSON payload")

const indent = "  "

var replacementChar = []byte("\uFFFD")

// EquipmentService stores whatever JSON the client sends, re-indented with
// two spaces. It does not look at the shape of the payload.
type EquipmentService struct {
	repo    repositories.EquipmentRepository
	backend string
	log     *zap.Logger
}

func NewEquipmentService(repo repositories.EquipmentRepository, backend string, log *zap.Logger) *EquipmentService {
	if log == nil {
		log = zap.NewNop()
	}
	return &EquipmentService{repo: repo, backend: backend, log: log}
}

// Save overwrites the stored record with body. An empty body is stored as
// an empty object. The top-level value must be an object or an array, and
// invalid UTF-8 sequences are replaced with U+FFFD.
func (s *EquipmentService) Save(ctx context.Context, body []byte) error {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		body = []byte("{}")
	}

	if !json.Valid(body) || (body[0] != '{' && body[0] != '[') {
		metrics.TrackEquipmentSave("invalid")
		return ErrInvalidPayload
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", indent); err != nil {
		metrics.TrackEquipmentSave("invalid")
		return ErrInvalidPayload
	}

	payload := bytes.ToValidUTF8(buf.Bytes(), replacementChar)

	timer := metrics.TrackStorageOperation("save", s.backend)
	err := s.repo.Save(ctx, payload)
	timer.ObserveDuration()

	if err != nil {
		metrics.TrackEquipmentSave("failure")
		return fmt.Errorf("failed to save equipment: %w", err)
	}

	metrics.TrackEquipmentSave("success")
	s.log.Debug("equipment saved", zap.Int("bytes", len(payload)), zap.String("backend", s.backend))
	return nil
}

// Load returns the last saved record, or repositories.ErrNotFound.
func (s *EquipmentService) Load(ctx context.Context) (*models.EquipmentSnapshot, error) {
	timer := metrics.TrackStorageOperation("load", s.backend)
	snapshot, err := s.repo.Load(ctx)
	timer.ObserveDuration()

	if errors.Is(err, repositories.ErrNotFound) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load equipment: %w", err)
	}
	return snapshot, nil
}
