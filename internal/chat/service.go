// Package chat runs a user message through validation, the answer chain and
// the category parser, and keeps the conversation in the history store.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skufu/Health-Info-Assistant/internal/analysis"
	"github.com/Skufu/Health-Info-Assistant/internal/history"
	"github.com/Skufu/Health-Info-Assistant/internal/llm"
	"github.com/Skufu/Health-Info-Assistant/internal/log"
	"github.com/Skufu/Health-Info-Assistant/internal/metrics"
	"github.com/Skufu/Health-Info-Assistant/internal/query"
)

// Asker answers a prompt. *llm.Chain implements it.
type Asker interface {
	Ask(ctx context.Context, req llm.Request) (llm.Answer, error)
}

type Request struct {
	ConversationID string `json:"conversationId"`
	Message        string `json:"message"`
}

type Reply struct {
	ConversationID   string            `json:"conversationId"`
	UserMessage      history.Message   `json:"userMessage"`
	AssistantMessage history.Message   `json:"assistantMessage"`
	Analysis         analysis.Response `json:"analysis"`
	Trace            []llm.Attempt     `json:"trace,omitempty"`
}

type Service struct {
	asker Asker
	store history.Store
	now   func() time.Time
}

// NewService creates a chat service. A nil store keeps nothing.
func NewService(asker Asker, store history.Store) *Service {
	return &Service{asker: asker, store: store, now: time.Now}
}

// Ask validates the message and answers it. Only validation errors and a
// cancelled ctx are returned; provider and storage failures degrade.
func (s *Service) Ask(ctx context.Context, req Request) (*Reply, error) {
	q, err := query.Validate(req.Message)
	if err != nil {
		metrics.IncQueryRejected(query.Reason(err))
		return nil, err
	}

	convID := strings.TrimSpace(req.ConversationID)
	if convID == "" {
		convID = uuid.NewString()
	}
	l := log.Ctx(ctx).With().Str(log.FieldConversation, convID).Logger()
	ctx = log.WithLogger(ctx, l)

	user := s.save(ctx, history.Message{
		ConversationID: convID,
		Content:        q.Text,
		IsUser:         true,
		Timestamp:      s.now().UTC(),
	})

	answer, err := s.asker.Ask(ctx, llm.Request{Question: q.Text, Prompt: llm.BuildPrompt(q.Text)})
	if err != nil {
		return nil, fmt.Errorf("answer question: %w", err)
	}

	result := analysis.Analyze(analysis.Input{
		Query:    q,
		Answer:   answer.Text,
		Source:   answer.Source,
		Fallback: answer.Fallback,
	})

	assistant := s.save(ctx, history.Message{
		ConversationID: convID,
		Content:        answer.Text,
		Source:         answer.Source,
		Timestamp:      s.now().UTC(),
	})

	l.Info().
		Str(log.FieldSource, answer.Source).
		Str("urgency", string(q.Urgency)).
		Int("sections_found", result.Found).
		Msg("question answered")

	return &Reply{
		ConversationID:   convID,
		UserMessage:      user,
		AssistantMessage: assistant,
		Analysis:         result,
		Trace:            answer.Trace,
	}, nil
}

// History returns the latest messages of a conversation, oldest first.
func (s *Service) History(ctx context.Context, conversationID string, limit int) ([]history.Message, error) {
	if s.store == nil {
		return []history.Message{}, nil
	}
	msgs, err := s.store.Latest(ctx, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if msgs == nil {
		msgs = []history.Message{}
	}
	return msgs, nil
}

func (s *Service) Clear(ctx context.Context, conversationID string) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Clear(ctx, conversationID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// save stores msg and returns the stored copy. A failed write is logged and
// the unsaved message is returned with a fresh ID.
func (s *Service) save(ctx context.Context, msg history.Message) history.Message {
	if s.store == nil {
		msg.ID = uuid.NewString()
		return msg
	}
	stored, err := s.store.Insert(ctx, msg)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Bool("is_user", msg.IsUser).Msg("failed to store chat message")
		msg.ID = uuid.NewString()
		return msg
	}
	return stored
}
