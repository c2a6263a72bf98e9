package config

import (
	"crypto/tls"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog"
)

// DefaultEmbeddingModel is used when EMBEDDING_MODEL is not set.
const DefaultEmbeddingModel = "text-embedding-3-large"

// AppConfig holds every setting the gateway reads at startup. It is built
// once in main and passed into constructors; nothing reads the environment
// after that.
type AppConfig struct {
	SupabaseURL        string
	SupabaseServiceKey string
	OpenAIAPIKey       string
	OpenAIBaseURL      string // optional endpoint override, empty means provider default
	EmbeddingModel     string
	LogLevel           zerolog.Level

	TLSMinVersion      uint16 // tls.VersionTLS12 or tls.VersionTLS13
	AcceptInvalidCerts bool   // disables certificate verification, test environments only
	NoRESTPrefix       bool   // treat SupabaseURL as the REST base itself
}

// FromEnv reads the gateway configuration from environment variables.
// Missing required variables are an error; the process must not start
// without credentials.
func FromEnv() (*AppConfig, error) {
	supabaseURL, err := require("SUPABASE_URL")
	if err != nil {
		return nil, err
	}
	serviceKey, err := require("SUPABASE_SERVICE_KEY")
	if err != nil {
		return nil, err
	}
	openaiKey, err := require("OPENAI_API_KEY")
	if err != nil {
		return nil, err
	}

	model := os.Getenv("EMBEDDING_MODEL")
	if model == "" {
		model = DefaultEmbeddingModel
	}

	// An unparseable LOG_LEVEL falls back to info instead of failing.
	level := zerolog.InfoLevel
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		if parsed, err := zerolog.ParseLevel(raw); err == nil {
			level = parsed
		}
	}

	tlsMin, err := parseTLSMinVersion(os.Getenv("TLS_MIN_VERSION"))
	if err != nil {
		return nil, err
	}

	acceptInvalid, err := boolEnv("DANGER_ACCEPT_INVALID_CERTS")
	if err != nil {
		return nil, err
	}

	noRESTPrefix, err := boolEnv("SUPABASE_NO_REST_PREFIX")
	if err != nil {
		return nil, err
	}

	return &AppConfig{
		SupabaseURL:        supabaseURL,
		SupabaseServiceKey: serviceKey,
		OpenAIAPIKey:       openaiKey,
		OpenAIBaseURL:      os.Getenv("OPENAI_BASE_URL"),
		EmbeddingModel:     model,
		LogLevel:           level,
		TLSMinVersion:      tlsMin,
		AcceptInvalidCerts: acceptInvalid,
		NoRESTPrefix:       noRESTPrefix,
	}, nil
}

func require(name string) (string, error) {
	value := os.Getenv(name)
	if value == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return value, nil
}

func parseTLSMinVersion(raw string) (uint16, error) {
	switch raw {
	case "", "1.2":
		return tls.VersionTLS12, nil
	case "1.3":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("TLS_MIN_VERSION must be 1.2 or 1.3, got %q", raw)
	}
}

func boolEnv(name string) (bool, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", name, raw)
	}
	return value, nil
}
