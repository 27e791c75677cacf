package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docqa/config"
	"docqa/model"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

const promptTemplate = `Answer the question based on the context below. Be specific and analytical.

Context: %s

Question: %s

Answer:`

// BuildPrompt fills the fixed answer template. The prompt ends with the "Answer:" cue.
func BuildPrompt(docContext, question string) string {
	return fmt.Sprintf(promptTemplate, docContext, question)
}

// Result is the outcome of one synthesis. Err is nil on success.
type Result struct {
	Answer       string
	Err          error
	PromptTokens int
}

// Failed reports whether the completion service call failed.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Render returns the text shown to the user: the answer, or an error line.
func (r Result) Render() string {
	if r.Err == nil {
		return r.Answer
	}
	var statusErr *model.StatusError
	if errors.As(r.Err, &statusErr) {
		return fmt.Sprintf("Error: %d - %s", statusErr.Code, statusErr.Body)
	}
	return fmt.Sprintf("Error calling Mistral API: %s", r.Err)
}

// TokenCounter returns the number of tokens in text.
type TokenCounter func(text string) (int, error)

type Synthesizer struct {
	completer model.Completer
	counter   TokenCounter
	logger    *zap.Logger
}

func NewSynthesizer(completer model.Completer, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{
		completer: completer,
		logger:    logger,
	}
}

// NewSynthesizerFromConfig wires a Mistral client built from cfg.
func NewSynthesizerFromConfig(cfg config.CompletionConfig, logger *zap.Logger) *Synthesizer {
	client := model.NewMistralClient(model.MistralConfig{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.RequestTimeout,
		MaxRetries:  cfg.MaxRetries,
		Backoff:     cfg.RetryBackoff,
	}, logger)

	s := NewSynthesizer(client, logger)
	if cfg.CountTokens {
		s.WithTokenCounter(CountTokens)
	}
	return s
}

// WithTokenCounter enables prompt size logging.
func (s *Synthesizer) WithTokenCounter(counter TokenCounter) *Synthesizer {
	s.counter = counter
	return s
}

// Answer builds the prompt and asks the completion service. It never returns an
// error: failures are carried in Result.Err.
func (s *Synthesizer) Answer(ctx context.Context, docContext, question string) Result {
	start := time.Now()
	prompt := BuildPrompt(docContext, question)

	var res Result
	if s.counter != nil {
		count, err := s.counter(prompt)
		if err != nil {
			s.logger.Warn("token count failed", zap.Error(err))
		}
		res.PromptTokens = count
	}

	res.Answer, res.Err = s.completer.Complete(ctx, prompt)

	fields := []zap.Field{
		zap.Int("prompt_chars", len(prompt)),
		zap.Int("prompt_tokens", res.PromptTokens),
		zap.Int("context_chars", len(docContext)),
		zap.Duration("took", time.Since(start)),
	}
	if res.Err != nil {
		s.logger.Error("answer synthesis failed", append(fields, zap.Error(res.Err))...)
		res.Answer = ""
		return res
	}
	s.logger.Info("answer synthesized", fields...)
	return res
}

// CountTokens counts tokens with the cl100k encoding used by gpt-3.5-turbo.
// It is an approximation of the Mistral tokenizer, good enough for prompt size logging.
func CountTokens(text string) (int, error) {
	enc, err := tiktoken.EncodingForModel("gpt-3.5-turbo")
	if err != nil {
		return 0, err
	}
	tokens := enc.Encode(text, nil, nil)
	return len(tokens), nil
}
