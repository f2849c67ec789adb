// Package config resolves process-wide settings from BANKING_-prefixed
// environment variables and an optional YAML overlay file. Every other
// component receives a *Settings by explicit parameter; nothing here is
// looked up through a package-level global except the narrow cmd/ wiring
// helper Load, mirroring how the original teaching service resolved paths
// once at startup and threaded the result through constructors.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Settings is the immutable, fully-resolved configuration for one process.
// Construct with Load; there are no setters.
type Settings struct {
	BaseDir string

	AdminDBPath         string
	ResultsDBPath       string
	PreprocessingDBPath string
	CacheDBPath         string
	UnifiedDBPath       string
	LogsDir             string
	VectorStoreDir      string
	UploadsDir          string
	ModelsDir           string
	PreprocessingOutDir string
	EncryptionKeyPath   string

	APIKey string

	OllamaBaseURL string
	OllamaModel   string

	NATSURL  string
	RedisURL string

	SampleLimit      int
	MaxWorkers       int
	MaxUploadSize    int64
	RateLimitPerMin  int
	LogLevel         string
	CORSOrigins      []string
	AllowedExtension map[string]bool
	VectorBackend    string
}

const sentinelWarn = "BANKING_ settings resolved with a default; see logs for details"

// overlay mirrors the subset of Settings that may be supplied via an
// optional YAML file (configs/banking.yaml), read before env vars are
// applied so that env always wins.
type overlay struct {
	RateLimitPerMin int      `yaml:"rate_limit_per_min"`
	CORSOrigins     []string `yaml:"cors_origins"`
	LogLevel        string   `yaml:"log_level"`
}

// Load resolves Settings from the environment, optionally overlaid by a
// YAML file at <base_dir>/configs/banking.yaml if present. It fails fast on
// invalid numeric values (e.g. a negative rate limit).
func Load() (*Settings, error) {
	baseDir := os.Getenv("BANKING_BASE_DIR")
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("config: resolve cwd: %w", err)
		}
		baseDir = wd
	}
	if !filepath.IsAbs(baseDir) {
		abs, err := filepath.Abs(baseDir)
		if err != nil {
			return nil, fmt.Errorf("config: resolve base dir: %w", err)
		}
		baseDir = abs
	}

	ov := loadOverlay(baseDir)

	rateLimit, err := intEnv("BANKING_RATE_LIMIT", 100)
	if err != nil {
		return nil, err
	}
	if rateLimit < 0 {
		return nil, fmt.Errorf("config: BANKING_RATE_LIMIT must be >= 0, got %d", rateLimit)
	}
	if os.Getenv("BANKING_RATE_LIMIT") == "" && ov.RateLimitPerMin > 0 {
		rateLimit = ov.RateLimitPerMin
	}

	maxWorkers, err := intEnv("BANKING_MAX_WORKERS", 8)
	if err != nil {
		return nil, err
	}
	if maxWorkers <= 0 {
		return nil, fmt.Errorf("config: BANKING_MAX_WORKERS must be > 0, got %d", maxWorkers)
	}

	maxUpload, err := int64Env("BANKING_MAX_UPLOAD_SIZE", 524288000)
	if err != nil {
		return nil, err
	}
	if maxUpload <= 0 {
		return nil, fmt.Errorf("config: BANKING_MAX_UPLOAD_SIZE must be > 0, got %d", maxUpload)
	}

	sampleLimit, err := intEnv("BANKING_SAMPLE_LIMIT", 500000)
	if err != nil {
		return nil, err
	}

	logLevel := strings.ToUpper(envOr("BANKING_LOG_LEVEL", ""))
	if logLevel == "" {
		logLevel = ov.LogLevel
	}
	if !validLogLevel(logLevel) {
		logLevel = "INFO"
	}

	corsOrigins := splitCSV(envOr("BANKING_CORS_ORIGINS", ""))
	if len(corsOrigins) == 0 {
		if len(ov.CORSOrigins) > 0 {
			corsOrigins = ov.CORSOrigins
		} else {
			corsOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
		}
	}

	vectorBackend := envOr("BANKING_VECTOR_BACKEND", "embedded")
	switch vectorBackend {
	case "dense", "external", "embedded":
	default:
		return nil, fmt.Errorf("config: BANKING_VECTOR_BACKEND must be one of dense,external,embedded, got %q", vectorBackend)
	}

	s := &Settings{
		BaseDir:             baseDir,
		AdminDBPath:         filepath.Join(baseDir, "admin.db"),
		ResultsDBPath:       filepath.Join(baseDir, "ml_pipeline_results.db"),
		PreprocessingDBPath: filepath.Join(baseDir, "preprocessing_results.db"),
		CacheDBPath:         filepath.Join(baseDir, "rag_cache.db"),
		UnifiedDBPath:       filepath.Join(baseDir, "banking_unified.db"),
		LogsDir:             filepath.Join(baseDir, "logs"),
		VectorStoreDir:      filepath.Join(baseDir, "vector_store"),
		UploadsDir:          filepath.Join(baseDir, "uploads"),
		ModelsDir:           filepath.Join(baseDir, "models"),
		PreprocessingOutDir: filepath.Join(baseDir, "preprocessing_output"),
		EncryptionKeyPath:   filepath.Join(baseDir, ".encryption.key"),

		APIKey: os.Getenv("BANKING_API_KEY"),

		OllamaBaseURL: envOr("BANKING_OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:   envOr("BANKING_OLLAMA_MODEL", "llama3.2"),

		NATSURL:  envOr("BANKING_NATS_URL", "nats://localhost:4222"),
		RedisURL: envOr("BANKING_REDIS_URL", "redis://localhost:6379"),

		SampleLimit:     sampleLimit,
		MaxWorkers:      maxWorkers,
		MaxUploadSize:   maxUpload,
		RateLimitPerMin: rateLimit,
		LogLevel:        logLevel,
		CORSOrigins:     corsOrigins,
		AllowedExtension: map[string]bool{
			".csv": true, ".json": true, ".xlsx": true,
		},
		VectorBackend: vectorBackend,
	}

	for _, dir := range []string{s.LogsDir, s.VectorStoreDir, s.UploadsDir, s.ModelsDir, s.PreprocessingOutDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("config: create %s: %w", dir, err)
		}
	}

	return s, nil
}

func loadOverlay(baseDir string) overlay {
	var ov overlay
	path := filepath.Join(baseDir, "configs", "banking.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return ov
	}
	_ = yaml.Unmarshal(data, &ov)
	return ov
}

func validLogLevel(level string) bool {
	switch level {
	case "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
		return true
	}
	return false
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer, got %q", key, v)
	}
	return n, nil
}

func int64Env(key string, def int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer, got %q", key, v)
	}
	return n, nil
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
