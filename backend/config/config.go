package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	JWTSecret  string
	ServerPort string

	// Chat completion API (OpenAI-compatible; defaults to the GLM endpoint)
	ChatAPIKey  string
	ChatBaseURL string
	ChatModel   string

	// Optional redis cache for dropout predictions; disabled when empty
	RedisAddr string

	// BKT parameters, fixed per deployment
	BKTInitial    float64
	BKTTransition float64
	BKTGuess      float64
	BKTSlip       float64
	BKTThreshold  float64
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "studyflow"),
		JWTSecret:  getEnv("JWT_SECRET", "secret"),
		ServerPort: getEnv("SERVER_PORT", "8080"),

		ChatAPIKey:  getEnv("CHAT_API_KEY", ""),
		ChatBaseURL: getEnv("CHAT_BASE_URL", "https://open.bigmodel.cn/api/paas/v4"),
		ChatModel:   getEnv("CHAT_MODEL", "glm-4"),

		RedisAddr: getEnv("REDIS_ADDR", ""),

		BKTInitial:    getEnvFloat("BKT_P_INITIAL", 0.5),
		BKTTransition: getEnvFloat("BKT_P_TRANSITION", 0.3),
		BKTGuess:      getEnvFloat("BKT_P_GUESS", 0.2),
		BKTSlip:       getEnvFloat("BKT_P_SLIP", 0.1),
		BKTThreshold:  getEnvFloat("BKT_MASTERY_THRESHOLD", 0.95),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
		log.Printf("Invalid value for %s, using default %v", key, defaultValue)
	}
	return defaultValue
}
