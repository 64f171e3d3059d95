package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// ErrNoCommand means the model could not map the text onto a command.
var ErrNoCommand = errors.New("no matching command")

// RephraserConfig holds configuration for the Rephraser.
type RephraserConfig struct {
	OpenRouterAPIKey string
	// Model name as understood by OpenRouter, e.g. "openai/gpt-4.1-mini".
	Model string

	// LLM overrides the OpenRouter client, mostly for tests.
	LLM llms.Model

	Logger *logrus.Logger
}

// Rephraser maps free text the parser rejected onto one canonical chat
// command using an LLM.
type Rephraser struct {
	llm    llms.Model
	logger *logrus.Logger
}

func NewRephraser(cfg RephraserConfig) (*Rephraser, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	llm := cfg.LLM
	if llm == nil {
		if cfg.OpenRouterAPIKey == "" {
			return nil, fmt.Errorf("OPENROUTER_API_KEY is required")
		}
		if cfg.Model == "" {
			cfg.Model = "openai/gpt-4.1-mini"
		}

		var err error
		llm, err = openai.New(
			openai.WithToken(cfg.OpenRouterAPIKey),
			openai.WithBaseURL(openRouterBaseURL),
			openai.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenRouter LLM: %w", err)
		}

		cfg.Logger.WithField("model", cfg.Model).Info("initialized command rephraser")
	}

	return &Rephraser{llm: llm, logger: cfg.Logger}, nil
}

// Rephrase returns a canonical command for text, or ErrNoCommand.
func (r *Rephraser) Rephrase(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf(`
You translate chat messages for an Arbitrum trading assistant into commands.
%s
User message:
%s
`, commandGrammar, text)

	resp, err := llms.GenerateFromSinglePrompt(
		ctx,
		r.llm,
		prompt,
		llms.WithMaxTokens(64),
		llms.WithTemperature(0),
	)
	if err != nil {
		return "", fmt.Errorf("LLM rephrase failed: %w", err)
	}

	cmd := sanitizeCommand(resp)
	if err := validateCommand(cmd); err != nil {
		r.logger.WithFields(logrus.Fields{
			"text":   text,
			"output": resp,
		}).WithError(err).Debug("rephrase rejected")
		return "", err
	}

	r.logger.WithFields(logrus.Fields{
		"text":    text,
		"command": cmd,
	}).Debug("rephrased chat message")
	return cmd, nil
}

// sanitizeCommand strips code fences, quotes and anything after the first line.
func sanitizeCommand(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			// drop a language tag such as ```text
			if tag := strings.TrimSpace(s[:nl]); tag != "" && !strings.Contains(tag, " ") {
				s = s[nl+1:]
			}
		}
	}
	if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[:nl]
	}

	s = strings.Trim(s, " \t\"'`.")
	return strings.ToLower(strings.TrimSpace(s))
}

func validateCommand(s string) error {
	switch {
	case s == "", s == "unknown":
		return ErrNoCommand
	case len(s) > 160:
		return fmt.Errorf("%w: output too long", ErrNoCommand)
	case strings.Contains(s, "confirm"):
		return fmt.Errorf("%w: refusing to confirm on the user's behalf", ErrNoCommand)
	}
	return nil
}
