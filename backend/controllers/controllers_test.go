package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyflow/backend/config"
	"studyflow/backend/routes"
	"studyflow/backend/services"
	"studyflow/backend/utils"
)

// newTestApp wires the full application against a live test database.
// Skipped unless TEST_DB_NAME is set; these tests need postgres.
func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	dbName := os.Getenv("TEST_DB_NAME")
	if dbName == "" {
		t.Skip("TEST_DB_NAME not set; skipping database-backed tests")
	}

	getenv := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}

	cfg := &config.Config{
		DBHost:        getenv("TEST_DB_HOST", "localhost"),
		DBPort:        getenv("TEST_DB_PORT", "5432"),
		DBUser:        getenv("TEST_DB_USER", "postgres"),
		DBPassword:    getenv("TEST_DB_PASSWORD", "postgres"),
		DBName:        dbName,
		JWTSecret:     "testsecret",
		ChatModel:     "glm-4",
		BKTInitial:    0.5,
		BKTTransition: 0.3,
		BKTGuess:      0.2,
		BKTSlip:       0.1,
		BKTThreshold:  0.95,
	}

	db, err := utils.InitDB(cfg)
	require.NoError(t, err)

	bktService := services.NewBKTService(db, services.NewBKTModel(cfg))
	dropoutService := services.NewDropoutService(db, services.NewDropoutScorer(), nil)
	chatService := services.NewChatService(db, cfg)

	app := fiber.New()
	routes.SetupRoutes(app, db, cfg, routes.Services{
		BKT:     bktService,
		Dropout: dropoutService,
		Chat:    chatService,
	})

	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := app.Test(req, 10000)
	require.NoError(t, err)

	var decoded map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp.StatusCode, decoded
}

func registerStudent(t *testing.T, app *fiber.App) string {
	t.Helper()

	username := fmt.Sprintf("student_%d", time.Now().UnixNano())
	status, body := doJSON(t, app, "POST", "/api/auth/register", "", fiber.Map{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret123",
	})
	require.Equal(t, fiber.StatusOK, status)

	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func studentID(t *testing.T, app *fiber.App, token string) uint {
	t.Helper()

	status, body := doJSON(t, app, "GET", "/api/students/me", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	id, ok := body["ID"].(float64)
	require.True(t, ok, "profile response must carry ID")
	return uint(id)
}

func TestRegisterAndProfile(t *testing.T) {
	app := newTestApp(t)

	token := registerStudent(t, app)
	id := studentID(t, app, token)
	assert.NotZero(t, id)

	// Profile requires a token
	status, _ := doJSON(t, app, "GET", "/api/students/me", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestSkillObservationFlow(t *testing.T) {
	app := newTestApp(t)

	token := registerStudent(t, app)
	id := studentID(t, app, token)
	base := fmt.Sprintf("/api/students/%d/skills/fractions", id)

	// First correct answer from the initial prior 0.5:
	// evidence 0.8182, transition 0.8727.
	status, body := doJSON(t, app, "POST", base+"/correct", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	mastery, _ := body["mastery"].(float64)
	assert.InDelta(t, 0.8727, mastery, 0.0001)
	assert.Equal(t, float64(1), body["num_correct"])

	// An incorrect answer pulls mastery back down.
	status, body = doJSON(t, app, "POST", base+"/incorrect", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	lower, _ := body["mastery"].(float64)
	assert.Less(t, lower, mastery)
	assert.Equal(t, float64(1), body["num_incorrect"])

	// Skill list reflects the pair.
	status, body = doJSON(t, app, "GET", fmt.Sprintf("/api/students/%d/skills", id), token, nil)
	require.Equal(t, fiber.StatusOK, status)
	skills, _ := body["skills"].([]interface{})
	require.Len(t, skills, 1)
}

func TestSkillAccessIsOwnerOnly(t *testing.T) {
	app := newTestApp(t)

	tokenA := registerStudent(t, app)
	tokenB := registerStudent(t, app)
	idA := studentID(t, app, tokenA)

	status, _ := doJSON(t, app, "POST",
		fmt.Sprintf("/api/students/%d/skills/fractions/correct", idA), tokenB, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestDropoutEndpoints(t *testing.T) {
	app := newTestApp(t)

	token := registerStudent(t, app)

	// Fresh student: neutral features, high risk.
	status, features := doJSON(t, app, "GET", "/api/dropout/features", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Len(t, features, len(services.FeatureNames))

	status, body := doJSON(t, app, "GET", "/api/dropout/risk", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	risk, _ := body["risk_score"].(float64)
	assert.GreaterOrEqual(t, risk, 0.0)
	assert.LessOrEqual(t, risk, 1.0)
	assert.Greater(t, risk, 0.5, "zero-activity student must read as high risk")

	// Second call inside the freshness window returns the same prediction.
	status, cached := doJSON(t, app, "GET", "/api/dropout/risk", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, body["predicted_at"], cached["predicted_at"])

	// force_refresh writes a new row; history now has at least two.
	status, _ = doJSON(t, app, "GET", "/api/dropout/risk?force_refresh=true", token, nil)
	require.Equal(t, fiber.StatusOK, status)

	status, history := doJSON(t, app, "GET", "/api/dropout/history", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	predictions, _ := history["predictions"].([]interface{})
	assert.GreaterOrEqual(t, len(predictions), 2)
}

func TestSessionAndMessageFlow(t *testing.T) {
	app := newTestApp(t)

	token := registerStudent(t, app)
	id := studentID(t, app, token)

	status, body := doJSON(t, app, "POST",
		fmt.Sprintf("/api/students/%d/sessions", id), token, fiber.Map{"course_id": "algebra"})
	require.Equal(t, fiber.StatusCreated, status)
	data, _ := body["data"].(map[string]interface{})
	sessionID, _ := data["ID"].(float64)
	require.NotZero(t, sessionID)

	status, _ = doJSON(t, app, "POST",
		fmt.Sprintf("/api/sessions/%d/messages", int(sessionID)), token, fiber.Map{
			"role":    "user",
			"content": "What is a fraction?",
		})
	require.Equal(t, fiber.StatusCreated, status)

	status, body = doJSON(t, app, "GET",
		fmt.Sprintf("/api/sessions/%d/messages", int(sessionID)), token, nil)
	require.Equal(t, fiber.StatusOK, status)
	messages, _ := body["messages"].([]interface{})
	assert.Len(t, messages, 1)

	// Other students cannot read the session.
	tokenB := registerStudent(t, app)
	status, _ = doJSON(t, app, "GET",
		fmt.Sprintf("/api/sessions/%d/messages", int(sessionID)), tokenB, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
}
