package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/Skufu/Health-Info-Assistant/internal/log"
	"github.com/Skufu/Health-Info-Assistant/internal/metrics"
)

// lastResort is served when even the local tier is missing or fails.
const lastResort = "I'm sorry, I can't answer right now. Please try again later, " +
	"and contact a healthcare professional if you need advice about your health."

var errEmptyAnswer = errors.New("empty answer")

// Tier is a remote provider together with its retry policy.
type Tier struct {
	Provider Provider
	Retry    RetryPolicy
}

// Attempt records what happened at one tier.
type Attempt struct {
	Provider string `json:"provider"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error,omitempty"`
}

// Answer is the text served to the user and the tier it came from.
type Answer struct {
	Text     string    `json:"text"`
	Source   string    `json:"source"`
	Fallback bool      `json:"fallback"`
	Trace    []Attempt `json:"trace,omitempty"`
}

// Chain tries remote tiers in order and degrades to the local provider.
type Chain struct {
	tiers []Tier
	local Provider
}

func NewChain(local Provider, tiers ...Tier) *Chain {
	return &Chain{tiers: tiers, local: local}
}

// Ask returns an error only when ctx is done; every other failure degrades
// to the next tier.
func (c *Chain) Ask(ctx context.Context, req Request) (Answer, error) {
	l := log.Ctx(ctx)
	var trace []Attempt

	for i, tier := range c.tiers {
		if tier.Provider == nil {
			continue
		}
		name := tier.Provider.Name()

		var text string
		n, err := Retry(ctx, tier.Retry, func(ctx context.Context) error {
			out, err := tier.Provider.Generate(ctx, req)
			if err != nil {
				return err
			}
			if strings.TrimSpace(out) == "" {
				return errEmptyAnswer
			}
			text = out
			return nil
		})
		metrics.AddProviderAttempts(name, n)

		if err == nil {
			trace = append(trace, Attempt{Provider: name, Attempts: n})
			metrics.IncAnswer(name)
			return Answer{Text: text, Source: name, Fallback: i > 0, Trace: trace}, nil
		}

		trace = append(trace, Attempt{Provider: name, Attempts: n, Error: err.Error()})
		metrics.IncProviderFailure(name)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Answer{Trace: trace}, ctxErr
		}
		l.Warn().Err(err).Str(log.FieldProvider, name).Int(log.FieldAttempts, n).Msg("provider failed, falling back")
	}

	return c.answerLocally(ctx, req, trace), nil
}

func (c *Chain) answerLocally(ctx context.Context, req Request, trace []Attempt) Answer {
	if c.local != nil {
		name := c.local.Name()
		text, err := c.local.Generate(ctx, req)
		if err == nil && strings.TrimSpace(text) != "" {
			metrics.IncAnswer(name)
			return Answer{Text: text, Source: name, Fallback: true, Trace: append(trace, Attempt{Provider: name, Attempts: 1})}
		}
		if err != nil {
			l := log.Ctx(ctx)
			l.Error().Err(err).Str(log.FieldProvider, name).Msg("local provider failed")
		}
	}
	metrics.IncAnswer("none")
	return Answer{Text: lastResort, Source: "none", Fallback: true, Trace: trace}
}
