package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"docqa/app/agent"
	"docqa/retrieval"
	"docqa/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrNoDocument is returned by Ask before a document has been loaded.
	ErrNoDocument = errors.New("no document loaded")
	// ErrEmptyQuestion is returned by Ask for a blank question.
	ErrEmptyQuestion = errors.New("question is empty")
)

type DocumentExtractor interface {
	Extract(ctx context.Context, name string, data []byte) (types.Document, error)
}

type AnswerSynthesizer interface {
	Answer(ctx context.Context, docContext, question string) agent.Result
}

type Options struct {
	ChunkSize int
	TopK      int
}

// Service creates sessions sharing the same extractor, synthesizer and retrieval options.
type Service struct {
	logger    *zap.Logger
	extractor DocumentExtractor
	synth     AnswerSynthesizer
	opts      Options
}

func New(extractor DocumentExtractor, synth AnswerSynthesizer, opts Options, logger *zap.Logger) *Service {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = retrieval.DefaultChunkSize
	}
	if opts.TopK <= 0 {
		opts.TopK = retrieval.DefaultTopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		logger:    logger,
		extractor: extractor,
		synth:     synth,
		opts:      opts,
	}
}

// NewSession returns an empty session with no document and no history.
func (s *Service) NewSession() *Session {
	id := uuid.New()
	now := time.Now()
	return &Session{
		ID:         id,
		CreatedAt:  now,
		lastActive: now,
		svc:        s,
		logger:     s.logger.With(zap.String("session", id.String())),
	}
}

// Session is the state of one user: the loaded document and the conversation.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time

	svc    *Service
	logger *zap.Logger

	// turn serializes uploads and questions; mu guards the fields below.
	turn       sync.Mutex
	mu         sync.RWMutex
	document   *types.Document
	messages   []types.Message
	lastActive time.Time
}

// LoadDocument extracts the upload and makes it the session document. On failure the
// previous document, if any, stays loaded. The conversation is kept across uploads.
func (s *Session) LoadDocument(ctx context.Context, name string, data []byte) (types.Document, error) {
	s.turn.Lock()
	defer s.turn.Unlock()
	s.touch()

	doc, err := s.svc.extractor.Extract(ctx, name, data)
	if err != nil {
		s.logger.Warn("document extraction failed", zap.String("name", name), zap.Error(err))
		return types.Document{}, err
	}

	s.mu.Lock()
	s.document = &doc
	s.mu.Unlock()

	s.logger.Info("document loaded",
		zap.String("name", doc.Name),
		zap.String("document", doc.ID.String()),
		zap.Int("words", len(strings.Fields(doc.FullText))))
	return doc, nil
}

// Ask answers question from the loaded document and appends the user message and the
// assistant message to the conversation. Completion failures do not return an error:
// the assistant message carries the rendered error text and Error set.
func (s *Session) Ask(ctx context.Context, question string) (types.Turn, error) {
	if strings.TrimSpace(question) == "" {
		return types.Turn{}, ErrEmptyQuestion
	}

	s.turn.Lock()
	defer s.turn.Unlock()
	s.touch()

	s.mu.RLock()
	doc := s.document
	s.mu.RUnlock()
	if doc == nil {
		return types.Turn{}, ErrNoDocument
	}

	chunks := retrieval.Chunk(doc.FullText, s.svc.opts.ChunkSize)
	sources := retrieval.RankScored(chunks, question, s.svc.opts.TopK)
	selected := make([]string, len(sources))
	for i, src := range sources {
		selected[i] = src.Content
	}

	s.logger.Debug("chunks ranked",
		zap.Int("chunks", len(chunks)),
		zap.Int("selected", len(selected)))

	userMsg := types.Message{Role: types.RoleUser, Content: question, CreatedAt: time.Now()}
	res := s.svc.synth.Answer(ctx, retrieval.Context(selected), question)
	assistantMsg := types.Message{
		Role:      types.RoleAssistant,
		Content:   res.Render(),
		Error:     res.Failed(),
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.messages = append(s.messages, userMsg, assistantMsg)
	s.mu.Unlock()

	return types.Turn{Question: userMsg, Answer: assistantMsg, Sources: sources}, nil
}

// Messages returns a copy of the conversation in submission order.
func (s *Session) Messages() []types.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Document returns the loaded document, or nil.
func (s *Session) Document() *types.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.document == nil {
		return nil
	}
	doc := *s.document
	return &doc
}

// DocumentLoaded reports whether questions can be asked.
func (s *Session) DocumentLoaded() bool {
	return s.Document() != nil
}

// State is a snapshot used by the HTTP layer.
func (s *Session) State() types.SessionResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	resp := types.SessionResponse{
		ID:             s.ID.String(),
		DocumentLoaded: s.document != nil,
		MessageCount:   len(s.messages),
		CreatedAt:      s.CreatedAt,
	}
	if s.document != nil {
		doc := *s.document
		resp.Document = &doc
	}
	return resp
}

// LastActive is the time of the last upload or question.
func (s *Session) LastActive() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActive
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}
