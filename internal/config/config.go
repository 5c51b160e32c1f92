// Package config loads the YAML configuration shared by the client and the
// backend. Values may reference environment variables (${VAR}); a .env file
// in the working directory is loaded first.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the binaries look for the config file.
const DefaultPath = "recipevoice.yaml"

// DefaultLogFile is where the client writes its log.
const DefaultLogFile = ".recipevoice-logs/client.log"

// Capture engine names.
const (
	EngineWhisper     = "whisper"
	EngineCloud       = "cloud"
	EngineTyped       = "typed"
	EngineUnsupported = "unsupported"
)

// Cache backend names.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheSQLite = "sqlite"
	CacheNone   = "none"
)

type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Capture CaptureConfig `yaml:"capture"`
	Speech  SpeechConfig  `yaml:"speech"`
	Server  ServerConfig  `yaml:"server"`
	LLM     LLMConfig     `yaml:"llm"`
	Sources SourcesConfig `yaml:"sources"`
	Cache   CacheConfig   `yaml:"cache"`
	Log     LogConfig     `yaml:"log"`
}

// BackendConfig is where the client finds the extraction/retrieval service.
type BackendConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type CaptureConfig struct {
	Engine         string        `yaml:"engine"`
	SessionTimeout time.Duration `yaml:"session_timeout"`
	Language       string        `yaml:"language"`

	WhisperBin   string        `yaml:"whisper_bin"`
	WhisperModel string        `yaml:"whisper_model"`
	ChunkLength  time.Duration `yaml:"chunk_length"`
	TempDir      string        `yaml:"temp_dir"`

	TranscribeURL   string `yaml:"transcribe_url"`
	TranscribeKey   string `yaml:"transcribe_key"`
	TranscribeModel string `yaml:"transcribe_model"`
	SampleRate      int    `yaml:"sample_rate"`
}

type SpeechConfig struct {
	Enabled     bool   `yaml:"enabled"`
	AzureKey    string `yaml:"azure_key"`
	AzureRegion string `yaml:"azure_region"`
	Voice       string `yaml:"voice"`
	CacheDir    string `yaml:"cache_dir"`
	DiskCache   bool   `yaml:"disk_cache"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// LLMConfig points at an OpenAI-compatible chat-completions endpoint.
type LLMConfig struct {
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"api_key"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
	JSONMode bool          `yaml:"json_mode"`
}

type SourcesConfig struct {
	SpoonacularKey string `yaml:"spoonacular_key"`
	YouTubeKey     string `yaml:"youtube_key"`
	Blog           bool   `yaml:"blog"`
	Samples        bool   `yaml:"samples"`
	PerSource      int    `yaml:"per_source"`
}

type CacheConfig struct {
	Backend       string        `yaml:"backend"`
	TTL           time.Duration `yaml:"ttl"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	SQLitePath    string        `yaml:"sqlite_path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads the config file at path. A missing file is not an error: the
// defaults (plus anything set through the environment) are returned.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML bytes, expanding ${VAR} references first, then applies
// defaults and environment fallbacks.
func Parse(data []byte) (*Config, error) {
	cfg := Config{
		Speech:  SpeechConfig{Enabled: true, DiskCache: true},
		Sources: SourcesConfig{Blog: true, Samples: true},
	}

	if len(data) > 0 {
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv fills credentials from the conventional environment variables
// when the file leaves them empty.
func (c *Config) applyEnv() {
	envFallback(&c.Backend.URL, "RECIPEVOICE_BACKEND_URL")
	envFallback(&c.Speech.AzureKey, "AZURE_SPEECH_KEY")
	envFallback(&c.Speech.AzureRegion, "AZURE_SPEECH_REGION")
	envFallback(&c.Capture.TranscribeKey, "OPENAI_API_KEY")
	envFallback(&c.LLM.Endpoint, "GPT_CHAT_ENDPOINT")
	envFallback(&c.LLM.APIKey, "GPT_CHAT_KEY")
	envFallback(&c.Sources.SpoonacularKey, "SPOONACULAR_API_KEY")
	envFallback(&c.Sources.YouTubeKey, "YOUTUBE_API_KEY")
	envFallback(&c.Cache.RedisAddr, "REDIS_ADDR")
}

func envFallback(dst *string, key string) {
	if *dst == "" {
		*dst = os.Getenv(key)
	}
}

func (c *Config) setDefaults() {
	if c.Backend.URL == "" {
		c.Backend.URL = "http://localhost:5000"
	}
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = 15 * time.Second
	}
	if c.Capture.Engine == "" {
		c.Capture.Engine = EngineWhisper
	}
	if c.Capture.SessionTimeout == 0 {
		c.Capture.SessionTimeout = 20 * time.Second
	}
	if c.Capture.Language == "" {
		c.Capture.Language = "en"
	}
	if c.Capture.WhisperBin == "" {
		c.Capture.WhisperBin = "whisper-cli"
	}
	if c.Capture.WhisperModel == "" {
		c.Capture.WhisperModel = "bin/ggml-small.bin"
	}
	if c.Capture.ChunkLength == 0 {
		c.Capture.ChunkLength = 2 * time.Second
	}
	if c.Capture.TempDir == "" {
		c.Capture.TempDir = ".recipevoice-stt"
	}
	if c.Capture.TranscribeURL == "" {
		c.Capture.TranscribeURL = "https://api.openai.com/v1/audio/transcriptions"
	}
	if c.Capture.TranscribeModel == "" {
		c.Capture.TranscribeModel = "whisper-1"
	}
	if c.Capture.SampleRate == 0 {
		c.Capture.SampleRate = 16000
	}
	if c.Speech.CacheDir == "" {
		c.Speech.CacheDir = ".recipevoice-cache"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":5000"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 90 * time.Second
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 30 * time.Second
	}
	if c.Sources.PerSource == 0 {
		c.Sources.PerSource = 3
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheMemory
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = time.Hour
	}
	if c.Cache.RedisAddr == "" {
		c.Cache.RedisAddr = "localhost:6379"
	}
	if c.Cache.SQLitePath == "" {
		c.Cache.SQLitePath = ".recipevoice-cache/recipes.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.File == "" {
		c.Log.File = DefaultLogFile
	}
}

// Validate rejects values the binaries cannot work with. An unknown capture
// engine is not rejected: the client falls back to the unsupported
// recognizer and says so.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case CacheMemory, CacheRedis, CacheSQLite, CacheNone:
	default:
		return fmt.Errorf("config: unknown cache backend %q", c.Cache.Backend)
	}
	if c.Backend.Timeout < 0 || c.Capture.SessionTimeout < 0 {
		return fmt.Errorf("config: timeouts must not be negative")
	}
	return nil
}
