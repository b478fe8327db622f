package models

import (
	"time"
)

// BrokerConfig holds the credentials of one broker, keyed by name
type BrokerConfig struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	BrokerName  string    `json:"broker_name" gorm:"uniqueIndex;not null"`
	APIKey      string    `json:"-" gorm:"not null"`
	APISecret   string    `json:"-" gorm:"not null"`
	AccessToken string    `json:"-"`
	IsActive    bool      `json:"is_active" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
