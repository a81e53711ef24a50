package config

import (
	"errors"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// ErrMissingCredential means OPENAI_API_KEY is absent. Resolution happens once
// at startup and is fatal before any provider call is attempted.
var ErrMissingCredential = errors.New("OPENAI_API_KEY is not set")

// Config holds application configuration.
type Config struct {
	HTTPAddress     string
	OpenAIKey       string
	OpenAIBaseURL   string
	ChatModel       string
	SpeechModel     string
	SpeechVoice     string
	TranscribeModel string
	CacheDir        string
}

// Load reads environment variables and returns Config with sane defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return Config{}, ErrMissingCredential
	}

	cfg := Config{
		HTTPAddress:     getEnv("HTTP_ADDRESS", ":8080"),
		OpenAIKey:       key,
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		ChatModel:       getEnv("CHAT_MODEL", "gpt-4o-mini"),
		SpeechModel:     getEnv("SPEECH_MODEL", "tts-1"),
		SpeechVoice:     getEnv("SPEECH_VOICE", "alloy"),
		TranscribeModel: getEnv("TRANSCRIBE_MODEL", "whisper-1"),
		CacheDir:        getEnv("CACHE_DIR", os.TempDir()),
	}
	log.Printf("config: HTTP_ADDRESS=%s", cfg.HTTPAddress)
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
