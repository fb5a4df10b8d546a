package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonathan/cv-builder/internal/assistant"
	"github.com/jonathan/cv-builder/internal/config"
	"github.com/jonathan/cv-builder/internal/document"
	"github.com/jonathan/cv-builder/internal/llm"
	"github.com/jonathan/cv-builder/internal/schemas"
	"github.com/jonathan/cv-builder/internal/types"
	"github.com/spf13/cobra"
)

// loadSettings resolves the configuration: defaults, then the --config file,
// then the environment. Command flags are applied by the caller.
func loadSettings(getenv func(string) string) (config.Config, error) {
	cfg := config.Config{}
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		if err := loaded.Validate(); err != nil {
			return cfg, err
		}
		cfg = *loaded
		if verbose {
			_, _ = fmt.Fprintf(os.Stdout, "Loaded config from: %s\n", configPath)
		}
	}

	cfg = cfg.MergeWithDefaults(config.Defaults())
	cfg, err := cfg.ApplyEnv(getenv)
	if err != nil {
		return cfg, err
	}
	if verbose {
		cfg.Verbose = true
	}
	return cfg, cfg.Validate()
}

// readDocument loads a CV document from a JSON file. An empty path yields
// the default document; missing fields take their default values.
func readDocument(path string) (types.CVDocument, error) {
	if path == "" {
		return document.Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return types.CVDocument{}, fmt.Errorf("failed to read document: %w", err)
	}
	if err := schemas.ValidateDocument(data); err != nil {
		return types.CVDocument{}, fmt.Errorf("invalid document %s: %w", path, err)
	}
	return document.MergeOverDefaults(data)
}

// writeDocument writes doc as indented JSON, to stdout when path is empty.
func writeDocument(cmd *cobra.Command, path string, doc types.CVDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	data = append(data, '\n')
	if path == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

// newAssistant builds the text-generation assistant from the configuration.
// The returned close function releases the client.
func newAssistant(ctx context.Context, cfg config.Config) (*assistant.Assistant, func(), error) {
	client, err := llm.NewClient(ctx, llm.ConfigFor(cfg.LLMProvider), cfg.APIKey)
	if errors.Is(err, llm.ErrMissingAPIKey) {
		return nil, nil, fmt.Errorf("an API key is required for %s (set GROQ_API_KEY or GEMINI_API_KEY, or api_key in the config file)", cfg.LLMProvider)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return assistant.New(client), func() { _ = client.Close() }, nil
}
