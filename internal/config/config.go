package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Input     InputConfig     `mapstructure:"input"`
	Output    OutputConfig    `mapstructure:"output"`
	Script    ScriptConfig    `mapstructure:"script"`
	Corpus    CorpusConfig    `mapstructure:"corpus"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Mandarin  GeneratorConfig `mapstructure:"mandarin"`
	Cantonese CantoneseConfig `mapstructure:"cantonese"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Store     StoreConfig     `mapstructure:"store"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Server    ServerConfig    `mapstructure:"server"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Templates TemplatesConfig `mapstructure:"templates"`
	PDF       PDFConfig       `mapstructure:"pdf"`
}

type InputConfig struct {
	File string `mapstructure:"file"`
}

type OutputConfig struct {
	File         string `mapstructure:"file"`
	Order        string `mapstructure:"order" validate:"oneof=insertion reverse"`
	FailuresFile string `mapstructure:"failures_file"`
	StudySheet   string `mapstructure:"study_sheet"`
}

type ScriptConfig struct {
	// CEDICTFile extends the built-in table with CC-CEDICT single character entries.
	CEDICTFile string `mapstructure:"cedict_file" validate:"omitempty,file"`
}

type CorpusConfig struct {
	EntriesDirectory  string  `mapstructure:"entries_directory" validate:"omitempty,dir"`
	IndexFile         string  `mapstructure:"index_file"`
	DumpURL           string  `mapstructure:"dump_url" validate:"omitempty,url"`
	CacheDirectory    string  `mapstructure:"cache_directory" validate:"omitempty,dir"`
	TopK              int     `mapstructure:"top_k" validate:"min=1"`
	DistanceThreshold float64 `mapstructure:"distance_threshold" validate:"gte=0,lte=2"`
	BatchSize         int     `mapstructure:"batch_size" validate:"min=1"`
}

type EmbeddingConfig struct {
	Provider string `mapstructure:"provider" validate:"oneof=none gemini openai"`
	Model    string `mapstructure:"model"`
}

type GeneratorConfig struct {
	Provider    string  `mapstructure:"provider" validate:"oneof=gemini anthropic openai"`
	Model       string  `mapstructure:"model" validate:"required"`
	Temperature float64 `mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int     `mapstructure:"max_tokens" validate:"min=1"`
}

type CantoneseConfig struct {
	GeneratorConfig `mapstructure:",squash"`
	// MeaningHint asks the Mandarin backend for a short definition when the
	// dictionary has no exact or only a formal entry.
	MeaningHint bool `mapstructure:"meaning_hint"`
}

type PipelineConfig struct {
	MaxAttempts     uint          `mapstructure:"max_attempts" validate:"min=1"`
	InitialBackoff  time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff      time.Duration `mapstructure:"max_backoff"`
	RequestInterval time.Duration `mapstructure:"request_interval"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	Concurrency     int           `mapstructure:"concurrency" validate:"min=1"`
	SkipExisting    bool          `mapstructure:"skip_existing"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=memory sqlite mysql"`
	// Path is the SQLite database file.
	Path string `mapstructure:"path"`
}

type DatabaseConfig struct {
	Host            string            `mapstructure:"host"`
	Port            int               `mapstructure:"port"`
	Database        string            `mapstructure:"database"`
	Username        string            `mapstructure:"username"`
	Password        string            `mapstructure:"password"`
	TLS             bool              `mapstructure:"tls"`
	Params          map[string]string `mapstructure:"params"`
	MaxOpenConns    int               `mapstructure:"max_open_conns"`
	MaxIdleConns    int               `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int               `mapstructure:"conn_max_lifetime_seconds"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	CORS CORSConfig `mapstructure:"cors"`
	// TokenSecret enables bearer token checks on the API when set.
	TokenSecret    string `mapstructure:"token_secret"`
	WatchTemplates bool   `mapstructure:"watch_templates"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type GeminiConfig struct {
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	BlockNone bool   `mapstructure:"block_none"`
}

type AnthropicConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// TemplatesConfig overrides the embedded prompt templates.
type TemplatesConfig struct {
	MandarinPrompt  string `mapstructure:"mandarin_prompt" validate:"omitempty,file"`
	CantonesePrompt string `mapstructure:"cantonese_prompt" validate:"omitempty,file"`
	MeaningPrompt   string `mapstructure:"meaning_prompt" validate:"omitempty,file"`
	StudySheet      string `mapstructure:"study_sheet" validate:"omitempty,file"`
}

// PDFConfig configures the study sheet PDF renderer.
type PDFConfig struct {
	// FontFile is a TrueType font with CJK glyphs, e.g. Noto Sans TC.
	FontFile string `mapstructure:"font_file" validate:"omitempty,file"`
}

type ConfigLoader struct {
	viper      *viper.Viper
	validator  *validator.Validate
	translator ut.Translator
}

func NewConfigLoader(configFile string) (*ConfigLoader, error) {
	validate, trans, err := newValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create new validator: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/cantocards")
	}

	return &ConfigLoader{
		viper:      v,
		validator:  validate,
		translator: trans,
	}, nil
}

func (loader *ConfigLoader) Load() (*Config, error) {
	v := loader.viper

	v.SetDefault("input.file", "input.txt")
	v.SetDefault("output.file", "output.txt")
	v.SetDefault("output.order", "insertion")
	v.SetDefault("output.failures_file", "failures.yml")
	v.SetDefault("output.study_sheet", filepath.Join("outputs", "study-sheet.md"))
	v.SetDefault("script.cedict_file", "")
	v.SetDefault("corpus.entries_directory", "dictionary_entries")
	v.SetDefault("corpus.index_file", filepath.Join("dictionaries", "corpus.db"))
	v.SetDefault("corpus.dump_url", "")
	v.SetDefault("corpus.cache_directory", "dictionaries")
	v.SetDefault("corpus.top_k", 3)
	v.SetDefault("corpus.distance_threshold", 0.5)
	v.SetDefault("corpus.batch_size", 100)
	v.SetDefault("embedding.provider", "gemini")
	v.SetDefault("embedding.model", "")
	v.SetDefault("mandarin.provider", "gemini")
	v.SetDefault("mandarin.model", "gemini-2.0-flash")
	v.SetDefault("mandarin.temperature", 1.0)
	v.SetDefault("mandarin.max_tokens", 256)
	v.SetDefault("cantonese.provider", "anthropic")
	v.SetDefault("cantonese.model", "claude-sonnet-4-5")
	v.SetDefault("cantonese.temperature", 0.7)
	v.SetDefault("cantonese.max_tokens", 100)
	v.SetDefault("cantonese.meaning_hint", true)
	v.SetDefault("pipeline.max_attempts", 3)
	v.SetDefault("pipeline.initial_backoff", time.Second)
	v.SetDefault("pipeline.max_backoff", 30*time.Second)
	v.SetDefault("pipeline.request_interval", time.Second)
	v.SetDefault("pipeline.request_timeout", 60*time.Second)
	v.SetDefault("pipeline.concurrency", 1)
	v.SetDefault("pipeline.skip_existing", false)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "cantocards.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.database", "cantocards")
	v.SetDefault("database.username", "user")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.watch_templates", false)
	v.SetDefault("gemini.block_none", true)
	// Templates are optional - if not specified, the embedded fallback templates are used
	v.SetDefault("templates.mandarin_prompt", "")
	v.SetDefault("templates.cantonese_prompt", "")
	v.SetDefault("templates.meaning_prompt", "")
	v.SetDefault("templates.study_sheet", "")
	v.SetDefault("pdf.font_file", "")

	// Secrets are bound to environment variables only
	for key, env := range map[string]string{
		"openai.api_key":      "OPENAI_API_KEY",
		"gemini.api_key":      "GEMINI_API_KEY",
		"anthropic.api_key":   "ANTHROPIC_API_KEY",
		"database.password":   "DB_PASSWORD",
		"server.token_secret": "CANTOCARDS_TOKEN_SECRET",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s environment variable: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("configuration file found but could not be read: %w. Please check the file format and permissions", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}

	if err := loader.validator.Struct(cfg); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		var errorMsgs []string
		for _, e := range validationErrors {
			errorMsgs = append(errorMsgs, e.Translate(loader.translator))
		}
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errorMsgs, ", "))
	}
	if cfg.Pipeline.MaxBackoff < cfg.Pipeline.InitialBackoff {
		return nil, fmt.Errorf("invalid configuration: max_backoff %s is shorter than initial_backoff %s",
			cfg.Pipeline.MaxBackoff, cfg.Pipeline.InitialBackoff)
	}

	return &cfg, nil
}
