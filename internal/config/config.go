// Package config loads service configuration from environment variables.
package config

import (
	"os"
	"strconv"
)

// Config holds everything the server binary needs to start.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string

	// DBPath is the SQLite database file path.
	DBPath string

	// ModelPath points at the person detection model weights.
	ModelPath string

	// ConfigPath optionally points at a model config file, for formats
	// that split weights and topology.
	ConfigPath string

	// ConfThreshold is the default detection confidence threshold.
	ConfThreshold float64

	// NMSThreshold is the non-maximum suppression IoU threshold.
	NMSThreshold float64

	// UploadDir is where uploaded videos are stored before processing.
	UploadDir string

	// MaxUploadMB caps the size of uploaded videos, in megabytes.
	MaxUploadMB int

	// StaticDir serves the web UI when non-empty.
	StaticDir string
}

// Load reads configuration from the environment, falling back to defaults.
func Load() Config {
	return Config{
		Addr:          getEnv("TURNSTILE_ADDR", ":8080"),
		DBPath:        getEnv("TURNSTILE_DB", "turnstile.db"),
		ModelPath:     getEnv("TURNSTILE_MODEL", "yolov8n.onnx"),
		ConfigPath:    getEnv("TURNSTILE_MODEL_CONFIG", ""),
		ConfThreshold: getEnvAsFloat("TURNSTILE_CONF_THRESHOLD", 0.25),
		NMSThreshold:  getEnvAsFloat("TURNSTILE_NMS_THRESHOLD", 0.45),
		UploadDir:     getEnv("TURNSTILE_UPLOAD_DIR", "uploads"),
		MaxUploadMB:   getEnvAsInt("TURNSTILE_MAX_UPLOAD_MB", 512),
		StaticDir:     getEnv("TURNSTILE_STATIC_DIR", ""),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
