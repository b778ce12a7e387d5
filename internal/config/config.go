package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	DBDSN    string
	LogFile  string
	AdminKey string

	WompiURL          string
	WompiPublicKey    string
	WompiPrivateKey   string
	WompiIntegrityKey string

	PollInterval    time.Duration
	PollMaxAttempts int
}

func Load() Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := Config{
		Port:     getenv("PORT", "3000"),
		DBDSN:    getenv("DB_DSN", "payflow.db"),
		LogFile:  os.Getenv("LOG_FILE"),
		AdminKey: os.Getenv("ADMIN_KEY"),

		WompiURL:          getenv("WOMPI_URL", "https://sandbox.wompi.co/v1"),
		WompiPublicKey:    os.Getenv("WOMPI_PUBLIC_KEY"),
		WompiPrivateKey:   os.Getenv("WOMPI_PRIVATE_KEY"),
		WompiIntegrityKey: os.Getenv("WOMPI_INTEGRITY_KEY"),

		PollInterval:    time.Duration(getint("POLL_INTERVAL_MS", 3000)) * time.Millisecond,
		PollMaxAttempts: getint("POLL_MAX_ATTEMPTS", 10),
	}
	log.Printf("[config] PORT=%s DB_DSN=%s WOMPI_URL=%s poll=%s x%d",
		cfg.Port, cfg.DBDSN, cfg.WompiURL, cfg.PollInterval, cfg.PollMaxAttempts)
	return cfg
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
