package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode      Mode
	HTTPAddr  string
	PublicURL string
	// Upper bound for a whole request; quiz generation is the slow path.
	RequestTimeout time.Duration

	DBDriver string
	DBDSN    string

	BlobBasePath  string // practice papers live under <base>/papers
	PapersPerPage int

	AuthSecret      string
	EnableLocalAuth bool

	// Bootstrap admin, created on startup when username and password are set
	AdminUsername string
	AdminEmail    string
	AdminPassword string

	CORSOriginsOnline  []string
	CORSOriginsOffline []string

	// Language model
	OpenAIKey         string
	OpenAIModel       string
	OpenAIBaseURL     string
	OpenAITemperature float64

	// Quiz generation and sessions
	DefaultQuestions        int
	MaxQuestions            int
	GenerateConcurrency     int
	CompletionTimeout       time.Duration
	SessionTTL              time.Duration
	AllowResubmit           bool
	DeleteSingleAfterAnswer bool
}

// Load reads an optional .env file and then the environment.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	return Config{
		Mode:      mode,
		HTTPAddr:  envOr("HTTP_ADDR", ":8080"),
		PublicURL: os.Getenv("PUBLIC_URL"),

		RequestTimeout: envDuration("HTTP_REQUEST_TIMEOUT", 3*time.Minute),

		DBDriver:      envOr("DB_DRIVER", "sqlite"),
		DBDSN:         envOr("DB_DSN", ""),
		BlobBasePath:  envOr("BLOB_BASE_PATH", "./data"),
		PapersPerPage: envInt("PAPERS_PER_PAGE", 5),

		AuthSecret:      envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		EnableLocalAuth: envBool("ENABLE_LOCAL_AUTH", true),

		AdminUsername: os.Getenv("ADMIN_USERNAME"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		CORSOriginsOnline:  csvOr("CORS_ORIGINS_ONLINE", "https://examprep.mindengage.ai"),
		CORSOriginsOffline: csvOr("CORS_ORIGINS_OFFLINE", "http://localhost:3000,http://localhost:5000"),

		OpenAIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:       envOr("OPENAI_MODEL", "gpt-4"),
		OpenAIBaseURL:     os.Getenv("OPENAI_BASE_URL"),
		OpenAITemperature: envFloat("OPENAI_TEMPERATURE", 0.5),

		DefaultQuestions:        envInt("QUIZ_DEFAULT_QUESTIONS", 5),
		MaxQuestions:            envInt("QUIZ_MAX_QUESTIONS", 20),
		GenerateConcurrency:     envInt("QUIZ_GENERATE_CONCURRENCY", 4),
		CompletionTimeout:       envDuration("QUIZ_COMPLETION_TIMEOUT", 60*time.Second),
		SessionTTL:              envDuration("QUIZ_SESSION_TTL", 2*time.Hour),
		AllowResubmit:           envBool("QUIZ_ALLOW_RESUBMIT", true),
		DeleteSingleAfterAnswer: envBool("QUIZ_DELETE_SINGLE_AFTER_ANSWER", false),
	}
}

// CORSOrigins returns the allow-list for the configured mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k))); err == nil {
		return v
	}
	return def
}
func envFloat(k string, def float64) float64 {
	if v, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(k)), 64); err == nil {
		return v
	}
	return def
}

// envDuration accepts Go durations ("90s") or bare seconds ("90"); "0" disables.
func envDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
