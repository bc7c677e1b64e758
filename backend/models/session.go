package models

import "gorm.io/gorm"

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// Session is a single tutoring conversation for a student within a course.
type Session struct {
	gorm.Model
	StudentID uint   `gorm:"index;not null"`
	CourseID  string `gorm:"index;not null"`
	Messages  []Message
}

type Message struct {
	gorm.Model
	SessionID uint        `gorm:"index;not null"`
	Role      MessageRole `gorm:"index;not null"`
	Content   string      `gorm:"size:10000;not null"`
	Tokens    int         `gorm:"default:0"`
	LatencyMs int         `gorm:"default:0"`
}
