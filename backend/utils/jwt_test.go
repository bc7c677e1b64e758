package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyflow/backend/config"
)

func extractVia(t *testing.T, cfg *config.Config, token string) (uint, error) {
	t.Helper()

	var gotID uint
	var gotErr error
	app := fiber.New()
	app.Get("/probe", func(c *fiber.Ctx) error {
		gotID, gotErr = ExtractStudentIDFromToken(c, cfg)
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/probe", nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	_, err := app.Test(req)
	require.NoError(t, err)

	return gotID, gotErr
}

func TestGenerateAndExtractToken(t *testing.T) {
	cfg := &config.Config{JWTSecret: "testsecret"}

	token, err := GenerateJWTToken(42, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	id, err := extractVia(t, cfg, token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
}

func TestExtractTokenMissing(t *testing.T) {
	cfg := &config.Config{JWTSecret: "testsecret"}

	_, err := extractVia(t, cfg, "")
	assert.Error(t, err)
}

func TestExtractTokenWrongSecret(t *testing.T) {
	cfg := &config.Config{JWTSecret: "testsecret"}
	other := &config.Config{JWTSecret: "othersecret"}

	token, err := GenerateJWTToken(7, cfg)
	require.NoError(t, err)

	_, err = extractVia(t, other, token)
	assert.Error(t, err)
}
