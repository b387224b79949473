// Package config loads runtime configuration from the environment, using
// the same getEnv*/default-value pattern as the teacher's internal/config.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds every environment-tunable setting the server needs.
type Config struct {
	Port string

	DataDir            string
	PersistenceEnabled bool
	SaveInterval       time.Duration

	JWTSecret string
	JWTIssuer string

	IPHMACSecret string

	AdvisorBaseURL string
	AdvisorAPIKey  string
	AdvisorTimeout time.Duration

	OracleMinStake         float64
	OracleMinReports       int
	OracleConsensusThresh  float64
	CORSAllowedOrigins     []string
}

// Load builds a Config from the process environment, falling back to
// development defaults for anything unset.
func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "5000"),

		DataDir:            getEnv("DATA_DIR", "./data"),
		PersistenceEnabled: getEnvBool("ENABLE_PERSISTENCE", true),
		SaveInterval:       getEnvDuration("SAVE_INTERVAL", 5*time.Minute),

		JWTSecret: getEnv("SECRET_KEY", "dev-secret-change-me"),
		JWTIssuer: getEnv("JWT_ISSUER", "cc-markets"),

		IPHMACSecret: getEnv("IP_HMAC_SECRET", "dev-ip-secret-change-me"),

		AdvisorBaseURL: getEnv("ADVISOR_BASE_URL", "https://advisor.internal"),
		AdvisorAPIKey:  getEnv("ADVISOR_API_KEY", ""),
		AdvisorTimeout: getEnvDuration("ADVISOR_TIMEOUT", 10*time.Second),

		OracleMinStake:        getEnvFloat("ORACLE_MIN_STAKE", 20.0),
		OracleMinReports:      getEnvInt("ORACLE_MIN_REPORTS", 3),
		OracleConsensusThresh: getEnvFloat("ORACLE_CONSENSUS_THRESHOLD", 0.75),

		CORSAllowedOrigins: []string{getEnv("CORS_ALLOWED_ORIGIN", "*")},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
