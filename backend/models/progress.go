package models

import "gorm.io/gorm"

// SkillProgress tracks BKT mastery for one (student, skill) pair.
// Created on the first observation with the configured initial mastery,
// updated on every observation, never deleted.
type SkillProgress struct {
	gorm.Model
	StudentID    uint    `gorm:"index:idx_student_skill,unique;not null"`
	SkillID      string  `gorm:"index:idx_student_skill,unique;not null"`
	Mastery      float64 `gorm:"not null"`
	NumCorrect   int     `gorm:"default:0"`
	NumIncorrect int     `gorm:"default:0"`
}
