// Package config parses vntransl's batch CLI surface: a project path, one or
// more endpoint URLs, and the flags from spec.md §6 plus the cache/quality/
// logging flags this module adds on top. Precedence is CLI flag > --config
// file > built-in default, mirroring the teacher's config.Load()/flag
// layering.
package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the fully-resolved set of options for one vntransl run.
type Config struct {
	ProjectPath string
	Endpoints   []string

	BatchSize    int
	HistorySize  int
	Timeout      float64
	StreamOutput bool

	PreDictFiles      []string
	PostDictFiles     []string
	GPTDictFiles      []string
	NoBuiltinPreDict  bool
	NoBuiltinPostDict bool
	NoBuiltinGPTDict  bool

	Proxy            string
	TopP             float64
	Temperature      float64
	PresencePenalty  float64
	FrequencyPenalty float64

	CacheDB        string
	FuzzyThreshold float64
	QualityGate    bool
	LogLevel       string
	ConfigFile     string
}

// Default returns the spec's built-in defaults, before any flag or config
// file is applied.
func Default() *Config {
	return &Config{
		BatchSize:        7,
		HistorySize:      2,
		Timeout:          30,
		TopP:             0.8,
		Temperature:      0.3,
		PresencePenalty:  0,
		FrequencyPenalty: 0,
		FuzzyThreshold:   0.95,
		QualityGate:      true,
		LogLevel:         "info",
	}
}

// Parse builds a Config from the given argv (excluding argv[0]). Flags take
// precedence over a --config file's values, which take precedence over
// Default().
func Parse(args []string) (*Config, error) {
	cfg := Default()

	fs := pflag.NewFlagSet("vntransl", pflag.ContinueOnError)
	fs.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "initial dispatcher batch size")
	fs.IntVar(&cfg.HistorySize, "history-size", cfg.HistorySize, "history window size")
	fs.Float64Var(&cfg.Timeout, "timeout", cfg.Timeout, "per-request timeout in seconds")
	fs.BoolVar(&cfg.StreamOutput, "stream-output", cfg.StreamOutput, "print fragments as they stream in (single-endpoint only)")

	fs.StringArrayVar(&cfg.PreDictFiles, "pre-dict", nil, "pre-translation dictionary file (repeatable)")
	fs.StringArrayVar(&cfg.PostDictFiles, "post-dict", nil, "post-translation dictionary file (repeatable)")
	fs.StringArrayVar(&cfg.GPTDictFiles, "gpt-dict", nil, "model-facing glossary file (repeatable)")
	fs.BoolVar(&cfg.NoBuiltinPreDict, "no-builtin-pre-dict", false, "disable the built-in pre-translation dictionary")
	fs.BoolVar(&cfg.NoBuiltinPostDict, "no-builtin-post-dict", false, "disable the built-in post-translation dictionary")
	fs.BoolVar(&cfg.NoBuiltinGPTDict, "no-builtin-gpt-dict", false, "disable the built-in model-facing glossary")

	fs.StringVar(&cfg.Proxy, "proxy", "", "HTTP proxy URL for endpoint requests")
	fs.Float64Var(&cfg.TopP, "top-p", cfg.TopP, "generation top_p")
	fs.Float64Var(&cfg.Temperature, "temperature", cfg.Temperature, "generation temperature")
	fs.Float64Var(&cfg.PresencePenalty, "presence-penalty", cfg.PresencePenalty, "generation presence_penalty")
	fs.Float64Var(&cfg.FrequencyPenalty, "frequency-penalty", cfg.FrequencyPenalty, "generation frequency_penalty")

	fs.StringVar(&cfg.CacheDB, "cache-db", "", "optional sqlite file enabling a persistent dedup cache")
	fs.Float64Var(&cfg.FuzzyThreshold, "fuzzy-threshold", cfg.FuzzyThreshold, "dedup cache fuzzy-match similarity threshold")
	fs.BoolVar(&cfg.QualityGate, "quality-gate", cfg.QualityGate, "enable the advisory quality gate")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&cfg.ConfigFile, "config", "", "optional settings file providing flag defaults")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("config: parse flags: %w", err)
	}

	if cfg.ConfigFile != "" {
		if err := mergeConfigFile(cfg, fs); err != nil {
			return nil, err
		}
	}

	positional := fs.Args()
	if len(positional) < 2 {
		return nil, fmt.Errorf("config: expected project_path followed by one or more endpoint URLs")
	}
	cfg.ProjectPath = positional[0]
	cfg.Endpoints = positional[1:]

	return cfg, nil
}

// mergeConfigFile layers cfg.ConfigFile's values under the already-parsed
// flags: an explicitly-passed flag always wins over the file, which in turn
// wins over Default(), since viper.BindPFlags consults pflag.Changed before
// falling back to the bound config value.
func mergeConfigFile(cfg *Config, fs *pflag.FlagSet) error {
	v := viper.New()
	v.SetConfigFile(cfg.ConfigFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: read %s: %w", cfg.ConfigFile, err)
	}
	if err := v.BindPFlags(fs); err != nil {
		return fmt.Errorf("config: bind flags: %w", err)
	}

	cfg.BatchSize = v.GetInt("batch-size")
	cfg.HistorySize = v.GetInt("history-size")
	cfg.Timeout = v.GetFloat64("timeout")
	cfg.StreamOutput = v.GetBool("stream-output")

	cfg.PreDictFiles = v.GetStringSlice("pre-dict")
	cfg.PostDictFiles = v.GetStringSlice("post-dict")
	cfg.GPTDictFiles = v.GetStringSlice("gpt-dict")
	cfg.NoBuiltinPreDict = v.GetBool("no-builtin-pre-dict")
	cfg.NoBuiltinPostDict = v.GetBool("no-builtin-post-dict")
	cfg.NoBuiltinGPTDict = v.GetBool("no-builtin-gpt-dict")

	cfg.Proxy = v.GetString("proxy")
	cfg.TopP = v.GetFloat64("top-p")
	cfg.Temperature = v.GetFloat64("temperature")
	cfg.PresencePenalty = v.GetFloat64("presence-penalty")
	cfg.FrequencyPenalty = v.GetFloat64("frequency-penalty")

	cfg.CacheDB = v.GetString("cache-db")
	cfg.FuzzyThreshold = v.GetFloat64("fuzzy-threshold")
	cfg.QualityGate = v.GetBool("quality-gate")
	cfg.LogLevel = v.GetString("log-level")

	return nil
}
