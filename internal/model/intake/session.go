package intake

import (
	"strings"
	"time"
)

// Step tracks where a visitor is in the scripted qualification flow.
// The flow never returns to an earlier step.
type Step string

const (
	StepInitial    Step = "initial"
	StepConsulting Step = "consulting"
	StepPowerBI    Step = "powerbi"
	StepExploring  Step = "exploring"
)

// MaxMessages caps the transcript length of a single session. Once reached the
// session is frozen until the visitor starts over.
const MaxMessages = 100

// Session captures a transient anonymous intake conversation. Sessions live in
// memory only and are discarded when the visitor navigates away.
type Session struct {
	ID               string    `json:"id"`
	Messages         []Message `json:"messages"`
	CurrentStep      Step      `json:"currentStep"`
	Awaiting         bool      `json:"awaiting"`
	RateLimitedUntil time.Time `json:"rateLimitedUntil,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// AtCap reports whether the transcript has reached its maximum length.
func (s *Session) AtCap() bool {
	return len(s.Messages) >= MaxMessages
}

// ValidateEmail applies the deliberately permissive syntactic rule used by the
// lead form: one "@" with non-space local and domain parts and at least one "."
// in the domain. Anything stricter starts rejecting addresses the business
// wants to capture.
func ValidateEmail(email string) bool {
	email = strings.TrimSpace(email)
	at := strings.Index(email, "@")
	if at <= 0 || at != strings.LastIndex(email, "@") {
		return false
	}

	local, domain := email[:at], email[at+1:]
	if strings.ContainsAny(local, " \t") || strings.ContainsAny(domain, " \t") {
		return false
	}

	dot := strings.Index(domain, ".")
	return dot > 0 && dot < len(domain)-1
}
