// Package intake manages the conversational lead-intake sessions behind the
// site's chat widget.
package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/northpeak-analytics/site-backend/internal/logger"
	"github.com/northpeak-analytics/site-backend/internal/model/intake"
	"github.com/northpeak-analytics/site-backend/internal/service/resolver"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrLimitReached    = errors.New("chat limit reached")
	ErrBusy            = errors.New("a submission is already in flight")
	ErrRateLimited     = errors.New("submissions temporarily rate limited")
	ErrEmptyMessage    = errors.New("message text is required")
	ErrInvalidEmail    = errors.New("please enter a valid email address")
)

const greetingScript = "Hi! I'm the Northpeak assistant. What brings you here today?"

// confirmDelay simulates the submission round-trip before the email
// confirmation reply appears.
const defaultConfirmDelay = 600 * time.Millisecond

// SubmitResult carries the assistant reply produced by a submission together
// with the session state the presentation layer needs.
type SubmitResult struct {
	Reply             *intake.Message `json:"message,omitempty"`
	Step              intake.Step     `json:"step"`
	RetryAfterSeconds int             `json:"retryAfter,omitempty"`
}

// Service owns all live intake sessions. Sessions are ephemeral and in-memory
// only; there is deliberately no persistence of conversation content.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*intake.Session

	optionResolver resolver.Resolver
	textResolver   resolver.Resolver
	confirmDelay   time.Duration
	now            func() time.Time
}

// NewService wires the session store with its resolution chains. remote may be
// nil when no generation endpoint is configured; replies are then scripted.
func NewService(remote resolver.Resolver) *Service {
	return &Service{
		sessions:       make(map[string]*intake.Session),
		optionResolver: resolver.WithFallback(remote, resolver.NewStepScript()),
		textResolver:   resolver.WithFallback(remote, resolver.NewEmailPrompt()),
		confirmDelay:   defaultConfirmDelay,
		now:            time.Now,
	}
}

// CreateSession provisions a fresh session seeded with the greeting message.
func (s *Service) CreateSession(_ context.Context) (intake.Session, error) {
	session := &intake.Session{
		ID:          uuid.NewString(),
		CurrentStep: intake.StepInitial,
		CreatedAt:   s.now().UTC(),
	}
	session.Messages = append(session.Messages, intake.Message{
		ID:        uuid.NewString(),
		Role:      intake.RoleAssistant,
		Content:   greetingScript,
		Options:   GreetingOptions(),
		CreatedAt: session.CreatedAt,
	})

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	return snapshot(session), nil
}

// GetSession returns a copy of the session state.
func (s *Service) GetSession(_ context.Context, sessionID string) (intake.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return intake.Session{}, ErrSessionNotFound
	}
	return snapshot(session), nil
}

// DeleteSession discards a session when the widget unmounts. Any in-flight
// resolution for it is abandoned without further writes.
func (s *Service) DeleteSession(_ context.Context, sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

// Transcript returns the ordered message log for a session.
func (s *Service) Transcript(_ context.Context, sessionID string) ([]intake.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	copied := make([]intake.Message, len(session.Messages))
	copy(copied, session.Messages)
	return copied, nil
}

// SubmitOption records the visitor's selection, advances the qualification
// step, and produces a reply. The step advances whether or not remote
// resolution succeeded.
func (s *Service) SubmitOption(ctx context.Context, sessionID, option string) (SubmitResult, error) {
	option = strings.TrimSpace(option)
	if option == "" {
		return SubmitResult{}, ErrEmptyMessage
	}

	history, step, err := s.beginSubmission(sessionID, option)
	if err != nil {
		return SubmitResult{}, err
	}

	next := nextStep(step, option)
	s.setStep(sessionID, next)

	reply, resolveErr := s.optionResolver.Resolve(ctx, history, next, option)
	return s.finishSubmission(ctx, sessionID, next, reply, resolveErr)
}

// SubmitText records a free-form visitor message and produces a reply. When
// remote resolution fails the fixed ask-for-email fallback is used instead.
func (s *Service) SubmitText(ctx context.Context, sessionID, text string) (SubmitResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return SubmitResult{}, ErrEmptyMessage
	}

	history, step, err := s.beginSubmission(sessionID, text)
	if err != nil {
		return SubmitResult{}, err
	}

	reply, resolveErr := s.textResolver.Resolve(ctx, history, step, text)
	return s.finishSubmission(ctx, sessionID, step, reply, resolveErr)
}

// SubmitEmail validates and records the visitor's email address, then appends
// the fixed confirmation after a short delay that simulates submission.
func (s *Service) SubmitEmail(ctx context.Context, sessionID, email string) (SubmitResult, error) {
	email = strings.TrimSpace(email)
	if !intake.ValidateEmail(email) {
		return SubmitResult{}, ErrInvalidEmail
	}

	_, step, err := s.beginSubmission(sessionID, email)
	if err != nil {
		return SubmitResult{}, err
	}

	select {
	case <-ctx.Done():
		s.clearAwaiting(sessionID)
		return SubmitResult{}, ctx.Err()
	case <-time.After(s.confirmDelay):
	}

	confirmation := fmt.Sprintf(
		"Perfect, thank you! I've forwarded your details to %s and someone from our team will reach out within one business day.",
		resolver.ForwardingAddress(),
	)
	return s.finishSubmission(ctx, sessionID, step, confirmation, nil)
}

// beginSubmission gates a new submission (cap, busy, rate limit), appends the
// user message, marks the session awaiting, and returns a history snapshot.
func (s *Service) beginSubmission(sessionID, content string) ([]intake.Message, intake.Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, "", ErrSessionNotFound
	}
	if session.AtCap() {
		return nil, "", ErrLimitReached
	}
	if session.Awaiting {
		return nil, "", ErrBusy
	}
	if until := session.RateLimitedUntil; !until.IsZero() && s.now().Before(until) {
		return nil, "", fmt.Errorf("%w: retry in %ds", ErrRateLimited, remainingSeconds(s.now(), until))
	}

	session.Messages = append(session.Messages, intake.Message{
		ID:        uuid.NewString(),
		Role:      intake.RoleUser,
		Content:   content,
		CreatedAt: s.now().UTC(),
	})
	session.Awaiting = true

	history := make([]intake.Message, len(session.Messages))
	copy(history, session.Messages)
	return history, session.CurrentStep, nil
}

// finishSubmission appends the assistant reply unless the session was torn
// down or the caller went away mid-resolution.
func (s *Service) finishSubmission(ctx context.Context, sessionID string, step intake.Step, reply string, resolveErr error) (SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		// The widget unmounted while we were resolving; drop the reply.
		return SubmitResult{}, ErrSessionNotFound
	}
	session.Awaiting = false

	if ctx.Err() != nil {
		return SubmitResult{}, ctx.Err()
	}

	result := SubmitResult{Step: step}

	var rl *resolver.RateLimitError
	if errors.As(resolveErr, &rl) {
		session.RateLimitedUntil = s.now().Add(rl.RetryAfter)
		result.RetryAfterSeconds = int(rl.RetryAfter / time.Second)
	} else if resolveErr != nil {
		logger.L.Warn("resolution failed without fallback", "session", sessionID, "error", resolveErr)
		return SubmitResult{}, resolveErr
	}

	if session.AtCap() {
		// The user turn consumed the last slot; the reply is dropped but the
		// submission itself already succeeded.
		return result, nil
	}

	message := intake.Message{
		ID:        uuid.NewString(),
		Role:      intake.RoleAssistant,
		Content:   reply,
		CreatedAt: s.now().UTC(),
	}
	session.Messages = append(session.Messages, message)
	result.Reply = &message
	return result, nil
}

func (s *Service) setStep(sessionID string, step intake.Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[sessionID]; ok {
		session.CurrentStep = step
	}
}

func (s *Service) clearAwaiting(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[sessionID]; ok {
		session.Awaiting = false
	}
}

func remainingSeconds(now, until time.Time) int {
	remaining := int(until.Sub(now).Round(time.Second) / time.Second)
	if remaining < 1 {
		remaining = 1
	}
	return remaining
}

func snapshot(session *intake.Session) intake.Session {
	copied := *session
	copied.Messages = make([]intake.Message, len(session.Messages))
	copy(copied.Messages, session.Messages)
	return copied
}
