package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigPath is the default YAML location. A missing file is not an error.
const ConfigPath = "config.yaml"

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

const (
	defaultPort          = "5000"
	defaultMongoDatabase = "healthchat"
	defaultGeminiModel   = "gemini-1.5-flash"
)

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port              string   `yaml:"port"`
	LogLevel          string   `yaml:"logLevel"`
	StoreDriver       string   `yaml:"storeDriver"`
	DatabaseURL       string   `yaml:"databaseURL"`
	MongoURI          string   `yaml:"mongoURI"`
	MongoDatabase     string   `yaml:"mongoDatabase"`
	RedisAddr         string   `yaml:"redisAddr"`
	RedisPassword     string   `yaml:"redisPassword"`
	JWTSecret         string   `yaml:"jwtSecret"`
	SessionTTL        string   `yaml:"sessionTTL"`
	GeminiAPIKey      string   `yaml:"geminiAPIKey"`
	GeminiModel       string   `yaml:"geminiModel"`
	GeminiBaseURL     string   `yaml:"geminiBaseURL"`
	GenerationTimeout string   `yaml:"generationTimeout"`
	CORSOrigins       []string `yaml:"corsOrigins"`
}

// Load reads .env, then the YAML file at path (defaults to config.yaml),
// then applies environment overrides and validates the result.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) {
	overrides := map[string]*string{
		"PORT":               &cfg.Port,
		"LOG_LEVEL":          &cfg.LogLevel,
		"STORE_DRIVER":       &cfg.StoreDriver,
		"DATABASE_URL":       &cfg.DatabaseURL,
		"MONGODB_URI":        &cfg.MongoURI,
		"MONGODB_DATABASE":   &cfg.MongoDatabase,
		"REDIS_ADDR":         &cfg.RedisAddr,
		"REDIS_PASSWORD":     &cfg.RedisPassword,
		"JWT_SECRET":         &cfg.JWTSecret,
		"SESSION_TTL":        &cfg.SessionTTL,
		"GEMINI_API_KEY":     &cfg.GeminiAPIKey,
		"GEMINI_MODEL":       &cfg.GeminiModel,
		"GEMINI_BASE_URL":    &cfg.GeminiBaseURL,
		"GENERATION_TIMEOUT": &cfg.GenerationTimeout,
	}
	for key, dst := range overrides {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("CORS_ORIGINS"); strings.TrimSpace(v) != "" {
		cfg.CORSOrigins = ParseList(v)
	}
}

func applyDefaults(cfg *FileConfig) {
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	if cfg.StoreDriver == "" {
		cfg.StoreDriver = inferDriver(*cfg)
	}
	if cfg.MongoDatabase == "" {
		cfg.MongoDatabase = defaultMongoDatabase
	}
	if cfg.GeminiModel == "" {
		cfg.GeminiModel = defaultGeminiModel
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
}

func inferDriver(cfg FileConfig) string {
	switch {
	case cfg.DatabaseURL != "":
		return DriverPostgres
	case cfg.MongoURI != "":
		return DriverMongo
	case cfg.RedisAddr != "":
		return DriverRedis
	default:
		return DriverMemory
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml or PORT)")
	}
	if cfg.JWTSecret == "" {
		return errors.New("config: jwtSecret is required (set in config.yaml or JWT_SECRET)")
	}
	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return errors.New("config: databaseURL is required for the postgres driver")
		}
	case DriverMongo:
		if cfg.MongoURI == "" {
			return errors.New("config: mongoURI is required for the mongo driver")
		}
	case DriverRedis:
		if cfg.RedisAddr == "" {
			return errors.New("config: redisAddr is required for the redis driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("config: unknown storeDriver %q", cfg.StoreDriver)
	}
	if _, err := ParseSessionTTL(cfg.SessionTTL); err != nil {
		return err
	}
	if _, err := ParseGenerationTimeout(cfg.GenerationTimeout); err != nil {
		return err
	}
	return nil
}

// ParseSessionTTL parses optional session TTL duration string.
func ParseSessionTTL(ttlStr string) (time.Duration, error) {
	return parseOptionalDuration("sessionTTL", ttlStr)
}

// ParseGenerationTimeout parses optional completion timeout duration string.
func ParseGenerationTimeout(timeoutStr string) (time.Duration, error) {
	return parseOptionalDuration("generationTimeout", timeoutStr)
}

func parseOptionalDuration(name, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", name, err)
	}
	if dur < 0 {
		return 0, fmt.Errorf("invalid %s duration: must be >= 0", name)
	}
	return dur, nil
}

// ParseList splits a comma-separated list, dropping blanks.
func ParseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
