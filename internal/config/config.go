// Package config loads service configuration from an optional YAML file
// (THERANOTES_CONFIG) with environment variables layered on top. Callers load
// .env into the environment before calling [Load].
package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"theranotes-go/internal/logger"
)

// Default service ports.
const (
	TranscriberPort = "8000"
	NotaryPort      = "8001"
	GatewayPort     = "8002"
)

// Engine names accepted by WHISPER_ENGINE.
const (
	EngineServer = "server"
	EngineNative = "native"
)

type Config struct {
	Environment   string        `yaml:"environment"`
	LogLevel      string        `yaml:"log_level"`
	Port          string        `yaml:"port"`
	CORSOrigins   []string      `yaml:"cors_origins"`
	MaxFileSizeMB int           `yaml:"max_file_size_mb"`
	TempDir       string        `yaml:"temp_dir"`
	NEREnabled    bool          `yaml:"ner_enabled"`
	Whisper       WhisperConfig `yaml:"whisper"`
	Stages        StagesConfig  `yaml:"stages"`
}

type WhisperConfig struct {
	Engine    string `yaml:"engine"`
	ServerURL string `yaml:"server_url"`
	ModelPath string `yaml:"model_path"`
	ModelSize string `yaml:"model_size"`
	Workers   int    `yaml:"workers"`
}

type StagesConfig struct {
	TranscriberURL    string        `yaml:"transcriber_url"`
	NotaryURL         string        `yaml:"notary_url"`
	FormatterURL      string        `yaml:"formatter_url"`
	TranscribeTimeout time.Duration `yaml:"transcribe_timeout"`
	ExtractTimeout    time.Duration `yaml:"extract_timeout"`
	FormatTimeout     time.Duration `yaml:"format_timeout"`
}

// Default returns the built-in configuration for a service listening on port.
func Default(port string) Config {
	return Config{
		LogLevel:      "info",
		Port:          port,
		CORSOrigins:   []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		MaxFileSizeMB: 25,
		TempDir:       "/tmp/theranotes",
		NEREnabled:    true,
		Whisper: WhisperConfig{
			Engine:    EngineServer,
			ServerURL: "http://localhost:8080",
			ModelSize: "base",
			Workers:   2,
		},
		Stages: StagesConfig{
			TranscriberURL:    "http://localhost:" + TranscriberPort,
			NotaryURL:         "http://localhost:" + NotaryPort,
			TranscribeTimeout: 5 * time.Minute,
			ExtractTimeout:    30 * time.Second,
			FormatTimeout:     30 * time.Second,
		},
	}
}

// MaxFileSizeBytes is the upload limit derived from MaxFileSizeMB.
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}

// Load builds the configuration for a service whose default port is
// defaultPort: defaults, then the YAML file named by THERANOTES_CONFIG, then
// environment variables. The result is validated.
func Load(defaultPort string) (*Config, error) {
	cfg := Default(defaultPort)
	if path := os.Getenv("THERANOTES_CONFIG"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("config: open %q: %w", path, err)
		}
		defer f.Close()
		if err := decodeYAML(f, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadFromReader decodes YAML from r over the defaults for defaultPort and
// validates the result. Environment variables are not consulted.
func loadFromReader(r io.Reader, defaultPort string) (*Config, error) {
	cfg := Default(defaultPort)
	if err := decodeYAML(r, &cfg); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeYAML(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: decode yaml: %w", err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not an integer", key, v))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not a duration", key, v))
				return
			}
			*dst = d
		}
	}

	str("ENVIRONMENT", &cfg.Environment)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("PORT", &cfg.Port)
	if v, ok := lookup("CORS_ORIGINS"); ok && v != "" {
		cfg.CORSOrigins = splitList(v)
	}
	integer("MAX_FILE_SIZE_MB", &cfg.MaxFileSizeMB)
	str("TEMP_DIR", &cfg.TempDir)
	if v, ok := lookup("NER_ENABLED"); ok && v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("NER_ENABLED: %q is not a boolean", v))
		} else {
			cfg.NEREnabled = b
		}
	}

	str("WHISPER_ENGINE", &cfg.Whisper.Engine)
	str("WHISPER_SERVER_URL", &cfg.Whisper.ServerURL)
	str("WHISPER_MODEL_PATH", &cfg.Whisper.ModelPath)
	str("WHISPER_MODEL_SIZE", &cfg.Whisper.ModelSize)
	integer("TRANSCRIBE_WORKERS", &cfg.Whisper.Workers)

	str("TRANSCRIBER_URL", &cfg.Stages.TranscriberURL)
	str("NOTARY_URL", &cfg.Stages.NotaryURL)
	str("FORMATTER_URL", &cfg.Stages.FormatterURL)
	duration("TRANSCRIBE_TIMEOUT", &cfg.Stages.TranscribeTimeout)
	duration("EXTRACT_TIMEOUT", &cfg.Stages.ExtractTimeout)
	duration("FORMAT_TIMEOUT", &cfg.Stages.FormatTimeout)

	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !logger.ValidLevel(cfg.LogLevel) {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}
	if cfg.Port == "" {
		errs = append(errs, errors.New("port must not be empty"))
	} else if n, err := strconv.Atoi(cfg.Port); err != nil || n <= 0 || n > 65535 {
		errs = append(errs, fmt.Errorf("port %q is not a valid TCP port", cfg.Port))
	}
	if cfg.MaxFileSizeMB <= 0 {
		errs = append(errs, fmt.Errorf("max_file_size_mb must be positive, got %d", cfg.MaxFileSizeMB))
	}
	switch cfg.Whisper.Engine {
	case EngineServer:
		if err := checkURL("whisper.server_url", cfg.Whisper.ServerURL); err != nil {
			errs = append(errs, err)
		}
	case EngineNative:
		if cfg.Whisper.ModelPath == "" && cfg.Whisper.ModelSize == "" {
			errs = append(errs, errors.New("whisper.model_path or whisper.model_size is required for the native engine"))
		}
	default:
		errs = append(errs, fmt.Errorf("whisper.engine %q is invalid; valid values: %s, %s", cfg.Whisper.Engine, EngineServer, EngineNative))
	}
	if cfg.Whisper.Workers <= 0 {
		errs = append(errs, fmt.Errorf("whisper.workers must be positive, got %d", cfg.Whisper.Workers))
	}
	for _, u := range []struct{ name, raw string }{
		{"stages.transcriber_url", cfg.Stages.TranscriberURL},
		{"stages.notary_url", cfg.Stages.NotaryURL},
	} {
		if err := checkURL(u.name, u.raw); err != nil {
			errs = append(errs, err)
		}
	}
	if cfg.Stages.FormatterURL != "" {
		if err := checkURL("stages.formatter_url", cfg.Stages.FormatterURL); err != nil {
			errs = append(errs, err)
		}
	}
	for _, t := range []struct {
		name string
		d    time.Duration
	}{
		{"stages.transcribe_timeout", cfg.Stages.TranscribeTimeout},
		{"stages.extract_timeout", cfg.Stages.ExtractTimeout},
		{"stages.format_timeout", cfg.Stages.FormatTimeout},
	} {
		if t.d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", t.name, t.d))
		}
	}

	return errors.Join(errs...)
}

func checkURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s %q is not an absolute URL", name, raw)
	}
	return nil
}

// ResolvedModelPath is ModelPath, or the conventional ggml file name for
// ModelSize under ./models.
func (w WhisperConfig) ResolvedModelPath() string {
	if w.ModelPath != "" {
		return w.ModelPath
	}
	return "models/ggml-" + w.ModelSize + ".bin"
}

// FormatterBaseURL returns the formatting stage base URL, which defaults to the
// notary service.
func (s StagesConfig) FormatterBaseURL() string {
	if s.FormatterURL != "" {
		return s.FormatterURL
	}
	return s.NotaryURL
}
