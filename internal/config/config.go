// Package config resolves the environment-backed settings for the remote
// collaborators: the cloud recognition service and the summarization service.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	DefaultCloudURL   = "https://api.openai.com/v1/audio/transcriptions"
	DefaultCloudModel = "whisper-1"

	DefaultSummaryURL   = "https://api.openai.com/v1/chat/completions"
	DefaultSummaryModel = "gpt-4o-mini"
)

const (
	EnvCloudURL      = "VOXNOTE_CLOUD_URL"
	EnvCloudAPIKey   = "VOXNOTE_CLOUD_API_KEY"
	EnvCloudModel    = "VOXNOTE_CLOUD_MODEL"
	EnvSummaryURL    = "VOXNOTE_SUMMARY_URL"
	EnvSummaryAPIKey = "VOXNOTE_SUMMARY_API_KEY"
	EnvSummaryModel  = "VOXNOTE_SUMMARY_MODEL"
	EnvFallbackKey   = "OPENAI_API_KEY"
)

type Config struct {
	CloudURL    string
	CloudAPIKey string
	CloudModel  string

	SummaryURL    string
	SummaryAPIKey string
	SummaryModel  string
}

// Load reads an optional .env file and then the process environment. A
// missing .env is not an error; flags stay the source of truth for anything
// not listed here.
func Load(logger *zap.Logger) Config {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Debug("no .env file loaded", zap.Error(err))
	}

	cfg := Config{
		CloudURL:      envOr(EnvCloudURL, DefaultCloudURL),
		CloudAPIKey:   firstEnv(EnvCloudAPIKey, EnvFallbackKey),
		CloudModel:    envOr(EnvCloudModel, DefaultCloudModel),
		SummaryURL:    envOr(EnvSummaryURL, DefaultSummaryURL),
		SummaryAPIKey: firstEnv(EnvSummaryAPIKey, EnvFallbackKey),
		SummaryModel:  envOr(EnvSummaryModel, DefaultSummaryModel),
	}

	return cfg
}

func (c Config) CloudConfigured() bool {
	return c.CloudAPIKey != ""
}

func (c Config) SummaryConfigured() bool {
	return c.SummaryAPIKey != ""
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}
