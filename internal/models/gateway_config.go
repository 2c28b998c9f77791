package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// GatewayConfig holds the settings for one configured payment gateway.
// Credentials are opaque to the orchestrator; each gateway factory decodes
// its own shape out of them.
type GatewayConfig struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Name string `gorm:"type:varchar(100)" json:"name"`
	// Gateway is the registry tag the config resolves through, e.g. "midtrans"
	Gateway     string          `gorm:"type:varchar(50);not null;index" json:"gateway"`
	Mode        PaymentMode     `gorm:"type:varchar(10);default:'test'" json:"mode"`
	Credentials json.RawMessage `gorm:"type:jsonb" json:"credentials"`
}
