package config

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string `validate:"required"`
	DBUser     string `validate:"required"`
	DBPassword string
	DBName     string `validate:"required"`
	DBPort     string `validate:"required"`
	AppPort    string `validate:"required"`
	AppEnv     string

	// Ceepos payment API settings. The secret is shared with the
	// processor and feeds every checksum on both directions.
	CeeposAPIURL    string `validate:"required,url"`
	CeeposAPIKey    string `validate:"required"`
	CeeposAPISecret string `validate:"required"`

	// Base URL this service is reachable on; the processor calls back
	// to <base>/payments/return and <base>/payments/notify.
	CallbackBaseURL string `validate:"required,url"`

	// Where to send the user when the order can not be resolved.
	UIFallbackURL string `validate:"required,url"`

	JWTSecret string `validate:"required"`
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:          os.Getenv("DB_HOST"),
		DBUser:          os.Getenv("DB_USER"),
		DBPassword:      os.Getenv("DB_PASSWORD"),
		DBName:          os.Getenv("DB_NAME"),
		DBPort:          os.Getenv("DB_PORT"),
		AppPort:         os.Getenv("APP_PORT"),
		AppEnv:          os.Getenv("APP_ENV"),
		CeeposAPIURL:    os.Getenv("CEEPOS_API_URL"),
		CeeposAPIKey:    os.Getenv("CEEPOS_API_KEY"),
		CeeposAPISecret: os.Getenv("CEEPOS_API_SECRET"),
		CallbackBaseURL: os.Getenv("CALLBACK_BASE_URL"),
		UIFallbackURL:   os.Getenv("UI_FALLBACK_URL"),
		JWTSecret:       os.Getenv("SECRET_KEY"),
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Environment variables not loaded properly: %v", err)
	}

	return cfg
}

func (c *Config) Validate() error {
	return validator.New().Struct(c)
}
