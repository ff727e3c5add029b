package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// FromEnv builds the configuration map the foundation bootstrap understands
// from environment variables, after loading envFiles (default ".env") into
// the process environment. Missing files are ignored.
//
//	APP_DEBUG       → debug
//	LOG_NAME        → log.name
//	LOG_FILE        → log.file
//	LOG_LEVEL       → log.level
//	LOG_PERMISSION  → log.permission (octal, e.g. 0640)
func FromEnv(envFiles ...string) Map {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)

	logCfg := Map{}
	setIf(logCfg, "name", env("LOG_NAME", ""))
	setIf(logCfg, "file", env("LOG_FILE", ""))
	setIf(logCfg, "level", env("LOG_LEVEL", ""))
	if perm, ok := envOctal("LOG_PERMISSION"); ok {
		logCfg["permission"] = perm
	}

	return Map{
		"debug": envBool("APP_DEBUG", false),
		"log":   logCfg,
	}
}

// ── helpers ─────────────────────────────────────────────────────────────────

func setIf(m Map, key, value string) {
	if value != "" {
		m[key] = value
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envOctal(key string) (os.FileMode, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(v, 8, 32)
	if err != nil {
		return 0, false
	}
	return os.FileMode(n), true
}
