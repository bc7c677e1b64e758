package models

import (
	"time"

	"gorm.io/gorm"
)

type Student struct {
	gorm.Model
	Username     string `gorm:"unique;not null"`
	Email        string `gorm:"unique;not null"`
	PasswordHash string `gorm:"not null" json:"-"`
	Role         string `gorm:"default:student"` // student, admin
	LastActive   *time.Time
}

type LoginHistory struct {
	gorm.Model
	StudentID uint `gorm:"index"`
	LoginTime time.Time
}
