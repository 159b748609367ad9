package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	// CSVPath is the station readings file loaded once at startup.
	CSVPath string

	// SessionDBPath is the sqlite file backing chat session contexts and the
	// conversation transcript. Empty selects an in-memory database.
	SessionDBPath string

	CORSOrigins []string

	// Gemini credentials. An empty APIKey disables the AI path entirely; the
	// chat degrades to heuristic and canned responses.
	GeminiAPIKey   string
	GeminiEndpoint string
	GeminiModel    string
	GeminiProModel string
}

// fileConfig mirrors the optional YAML config file. Environment variables
// override anything set here.
type fileConfig struct {
	AppEnv        string   `yaml:"app_env"`
	LogLevel      string   `yaml:"log_level"`
	HTTPAddr      string   `yaml:"http_addr"`
	CSVPath       string   `yaml:"csv_path"`
	SessionDBPath string   `yaml:"session_db_path"`
	CORSOrigins   []string `yaml:"cors_origins"`
	Gemini        struct {
		APIKey   string `yaml:"api_key"`
		Endpoint string `yaml:"endpoint"`
		Model    string `yaml:"model"`
		ProModel string `yaml:"pro_model"`
	} `yaml:"gemini"`
}

// Load reads the optional YAML file named by path (or the CONFIG_FILE env var
// when path is empty), then applies environment overrides and defaults.
func Load(path string) (Config, error) {
	var fc fileConfig
	if path == "" {
		path = strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	appEnv := firstOf(os.Getenv("APP_ENV"), fc.AppEnv, "dev")
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(firstOf(os.Getenv("LOG_LEVEL"), fc.LogLevel, "info"))
	if err != nil {
		return Config{}, err
	}

	origins := fc.CORSOrigins
	if s := strings.TrimSpace(os.Getenv("CORS_ORIGINS")); s != "" {
		origins = nil
		for _, o := range strings.Split(s, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return Config{
		AppEnv:         appEnv,
		LogLevel:       level,
		HTTPAddr:       firstOf(os.Getenv("HTTP_ADDR"), fc.HTTPAddr, ":8000"),
		CSVPath:        firstOf(os.Getenv("CSV_PATH"), fc.CSVPath, "datos_limpios.csv"),
		SessionDBPath:  firstOf(os.Getenv("SESSION_DB_PATH"), fc.SessionDBPath, ""),
		CORSOrigins:    origins,
		GeminiAPIKey:   firstOf(os.Getenv("GEMINI_API_KEY"), fc.Gemini.APIKey, ""),
		GeminiEndpoint: firstOf(os.Getenv("GEMINI_ENDPOINT"), fc.Gemini.Endpoint, ""),
		GeminiModel:    firstOf(os.Getenv("GEMINI_MODEL"), fc.Gemini.Model, "gemini-2.5-flash"),
		GeminiProModel: firstOf(os.Getenv("GEMINI_PRO_MODEL"), fc.Gemini.ProModel, "gemini-2.5-pro"),
	}, nil
}

// firstOf returns the first non-empty value after trimming.
func firstOf(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
