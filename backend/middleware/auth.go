package middleware

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"studyflow/backend/config"
	"studyflow/backend/models"
	"studyflow/backend/utils"
)

// StudentIDKey is the locals key under which AuthMiddleware stores the
// authenticated student's ID.
const StudentIDKey = "studentID"

func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		studentID, err := utils.ExtractStudentIDFromToken(c, cfg)
		if err != nil {
			return utils.Unauthorized(c, "Unauthorized")
		}
		c.Locals(StudentIDKey, studentID)
		return c.Next()
	}
}

// AdminMiddleware requires the authenticated student to carry the admin role.
func AdminMiddleware(db *gorm.DB, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		studentID, err := utils.ExtractStudentIDFromToken(c, cfg)
		if err != nil {
			return utils.Unauthorized(c, "Unauthorized")
		}

		var student models.Student
		if err := db.First(&student, studentID).Error; err != nil {
			return utils.Unauthorized(c, "Unauthorized")
		}
		if student.Role != "admin" {
			return utils.Forbidden(c, "Forbidden - Admin access required")
		}

		c.Locals(StudentIDKey, studentID)
		return c.Next()
	}
}

// AuthenticatedStudentID reads the student ID stored by AuthMiddleware.
func AuthenticatedStudentID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(StudentIDKey).(uint)
	return id, ok
}
