package models

import (
	"time"
)

// EquipmentSnapshot is the last saved equipment payload. Payload is stored
// byte for byte as written; Version counts writes where the backend tracks it.
type EquipmentSnapshot struct {
	Payload   []byte    `json:"-"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}
