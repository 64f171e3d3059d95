package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type stubLLM struct {
	reply  string
	err    error
	prompt string
}

func (s *stubLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, m := range messages {
		for _, p := range m.Parts {
			if tc, ok := p.(llms.TextContent); ok {
				s.prompt += tc.Text
			}
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: s.reply}}}, nil
}

func (s *stubLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, s, prompt, options...)
}

func newTestRephraser(t *testing.T, llm llms.Model) *Rephraser {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	r, err := NewRephraser(RephraserConfig{LLM: llm, Logger: logger})
	require.NoError(t, err)
	return r
}

func TestNewRephraser_RequiresKey(t *testing.T) {
	_, err := NewRephraser(RephraserConfig{})
	assert.Error(t, err)
}

func TestRephrase(t *testing.T) {
	llm := &stubLLM{reply: "```\nswap 2 eth to usdc\n```"}
	r := newTestRephraser(t, llm)

	cmd, err := r.Rephrase(context.Background(), "could you trade two ether into usdc")
	require.NoError(t, err)
	assert.Equal(t, "swap 2 eth to usdc", cmd)
	assert.Contains(t, llm.prompt, "could you trade two ether into usdc")
}

func TestRephrase_Rejections(t *testing.T) {
	for _, reply := range []string{"unknown", "  ", "Confirm swap", "UNKNOWN."} {
		r := newTestRephraser(t, &stubLLM{reply: reply})
		_, err := r.Rephrase(context.Background(), "hmm")
		assert.ErrorIs(t, err, ErrNoCommand, "reply %q", reply)
	}
}

func TestRephrase_LLMError(t *testing.T) {
	r := newTestRephraser(t, &stubLLM{err: errors.New("429 rate limited")})
	_, err := r.Rephrase(context.Background(), "hmm")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoCommand)
}

func TestSanitizeCommand(t *testing.T) {
	tests := map[string]string{
		"check balance":                  "check balance",
		"\"Check Balance.\"":             "check balance",
		"```text\nhelp\n```":             "help",
		"send 1 eth to 0xAB\nbecause...": "send 1 eth to 0xab",
		"`swap 1 usdc to eth`":           "swap 1 usdc to eth",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeCommand(in), in)
	}
}
