package models

import (
	"time"

	"gorm.io/gorm"
)

// DropoutPrediction is an immutable risk snapshot. A recomputation always
// inserts a new row; existing rows are never updated.
type DropoutPrediction struct {
	gorm.Model
	StudentID   uint    `gorm:"index;not null"`
	RiskScore   float64 `gorm:"not null"` // 0..1
	Features    string  `gorm:"type:jsonb"`
	PredictedAt time.Time `gorm:"index"`
}
