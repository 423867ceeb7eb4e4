package conversation

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"salescoach/internal/domain"
	"salescoach/internal/llm"
	"salescoach/internal/persona"
)

// Welcome is the salesperson's scripted first line.
const Welcome = "您好，欢迎光临！随便看看，有喜欢的可以叫我。"

// ErrEmptyUtterance is returned when the salesperson says nothing.
var ErrEmptyUtterance = errors.New("empty salesperson utterance")

// Session is one simulated sale: an append-only transcript driven one turn at a time.
type Session struct {
	agent *Agent

	mu    sync.Mutex
	turns []domain.Turn
}

// NewSession starts an empty transcript for agent.
func NewSession(agent *Agent) *Session {
	return &Session{agent: agent}
}

// Agent returns the session's agent.
func (s *Session) Agent() *Agent { return s.agent }

// Start records the welcome line and the customer's opening. If the model fails,
// the persona's scripted opening is used and the error is only logged.
func (s *Session) Start(ctx context.Context, onToken llm.TokenFunc) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	reply, err := s.agent.Reply(ctx, nil, Welcome, onToken)
	if err != nil {
		log.Warn().Err(err).Str("persona", s.agent.persona.Name).Msg("opening reply failed, using scripted opening")
		reply = s.agent.persona.Opening
		if reply == "" {
			reply = persona.GenericOpening
		}
	}
	s.turns = append(s.turns,
		domain.Turn{Role: domain.RoleSalesperson, Content: Welcome},
		domain.Turn{Role: domain.RoleCustomer, Content: reply},
	)
	return reply
}

// Say sends the salesperson's utterance and returns the customer's reply.
// Both turns are recorded only on success, so a failed call can simply be retried.
func (s *Session) Say(ctx context.Context, utterance string, onToken llm.TokenFunc) (string, error) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return "", ErrEmptyUtterance
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	reply, err := s.agent.Reply(ctx, s.turns, utterance, onToken)
	if err != nil {
		return "", err
	}
	s.turns = append(s.turns,
		domain.Turn{Role: domain.RoleSalesperson, Content: utterance},
		domain.Turn{Role: domain.RoleCustomer, Content: reply},
	)
	return reply, nil
}

// Transcript returns a copy of all turns in order.
func (s *Session) Transcript() []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Turn(nil), s.turns...)
}

// Len returns the number of recorded turns.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}
