// Command vntransl batch-translates visual-novel script work files against
// one or more OpenAI-chat-completions-compatible streaming endpoints.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"vntransl/internal/cache"
	"vntransl/internal/config"
	"vntransl/internal/glossary"
	"vntransl/internal/llmclient"
	"vntransl/internal/logging"
	"vntransl/internal/pipeline"
	"vntransl/internal/prompt"
	"vntransl/internal/quality"
	"vntransl/pkg/utils"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "vntransl: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(os.Stderr, cfg.LogLevel)
	utils.SafeRun(logger, func() { run(logger, cfg) })
}

func run(logger *slog.Logger, cfg *config.Config) {
	preDict, postDict, modelDict, err := loadGlossary(cfg)
	if err != nil {
		logger.Error("failed to load glossary", "error", err)
		os.Exit(1)
	}

	clients := make([]*llmclient.Client, 0, len(cfg.Endpoints))
	for _, endpoint := range cfg.Endpoints {
		c, err := llmclient.New(endpoint, "default", time.Duration(cfg.Timeout*float64(time.Second)), cfg.Proxy)
		if err != nil {
			logger.Error("failed to configure endpoint", "endpoint", endpoint, "error", err)
			os.Exit(1)
		}
		clients = append(clients, c)
	}

	var dedup pipeline.Cache
	if cfg.CacheDB != "" {
		c, err := cache.Open(cfg.CacheDB, cfg.FuzzyThreshold, logger)
		if err != nil {
			logger.Error("failed to open cache database", "path", cfg.CacheDB, "error", err)
			os.Exit(1)
		}
		defer c.Close()
		dedup = c
	} else {
		dedup = cache.NewMemory()
	}

	var gate pipeline.QualityGate
	if cfg.QualityGate {
		gate = quality.NewLinter(logger)
	}

	driver := &pipeline.Driver{
		Clients:     clients,
		BatchSize:   cfg.BatchSize,
		HistorySize: cfg.HistorySize,
		Params: prompt.Hyperparameters{
			Temperature:      cfg.Temperature,
			TopP:             cfg.TopP,
			PresencePenalty:  cfg.PresencePenalty,
			FrequencyPenalty: cfg.FrequencyPenalty,
		},
		PreDict:      preDict,
		PostDict:     postDict,
		ModelDict:    modelDict,
		Cache:        dedup,
		QualityGate:  gate,
		StreamOutput: cfg.StreamOutput,
		Logger:       logger,
	}

	if err := driver.ProcessProject(context.Background(), cfg.ProjectPath); err != nil {
		logger.Error("translation run failed", "error", err)
		os.Exit(1)
	}
}

func loadGlossary(cfg *config.Config) (preDict, postDict []glossary.Entry, modelDict []glossary.Term, err error) {
	preFiles := cfg.PreDictFiles
	postFiles := cfg.PostDictFiles
	gptFiles := cfg.GPTDictFiles

	if !cfg.NoBuiltinPreDict {
		preFiles = append(append([]string{}, builtinDictPath("pre_dict.txt")), preFiles...)
	}
	if !cfg.NoBuiltinPostDict {
		postFiles = append(append([]string{}, builtinDictPath("post_dict.txt")), postFiles...)
	}
	if !cfg.NoBuiltinGPTDict {
		gptFiles = append(append([]string{}, builtinDictPath("gpt_dict.txt")), gptFiles...)
	}

	preDict, err = glossary.LoadTranslationDict(existingFiles(preFiles))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("pre-dict: %w", err)
	}
	postDict, err = glossary.LoadTranslationDict(existingFiles(postFiles))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("post-dict: %w", err)
	}
	modelDict, err = glossary.LoadModelDict(existingFiles(gptFiles))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("gpt-dict: %w", err)
	}
	return preDict, postDict, modelDict, nil
}

// builtinDictPath is the conventional location for a user-maintained default
// dictionary, resolved relative to the working directory; it's silently
// skipped by existingFiles when absent, so shipping no file at all is the
// default.
func builtinDictPath(name string) string {
	return name
}

func existingFiles(paths []string) []string {
	var out []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			out = append(out, p)
		}
	}
	return out
}
