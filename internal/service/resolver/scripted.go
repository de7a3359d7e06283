package resolver

import (
	"context"

	"github.com/northpeak-analytics/site-backend/internal/model/intake"
)

// forwardingAddress is referenced by the email confirmation copy and the
// free-text fallback.
const forwardingAddress = "hello@northpeak-analytics.com"

var stepScripts = map[intake.Step]string{
	intake.StepConsulting: "Great choice. Our strategic consulting engagements usually start with a discovery call " +
		"to map out scope, timeline, and budget. Could you tell me a bit about the problem you want to solve?",
	intake.StepPowerBI: "Power BI is our specialty. To scope a dashboard build we need to know your data sources " +
		"and the decisions the dashboard should support. What systems does your data live in today?",
	intake.StepExploring: "Happy to help you explore. We work across analytics strategy, dashboarding, and data " +
		"engineering. What outcome would make this project a success for you?",
	intake.StepInitial: "Thanks for reaching out. Are you looking for strategic consulting, a Power BI dashboard, " +
		"or just exploring what we do?",
}

const askEmailScript = "Thanks for the details. Could you share your email address so our team can follow up with " +
	"a tailored proposal?"

// Scripted is the deterministic local resolver. It never fails, which makes it
// a valid terminal fallback.
type Scripted struct {
	texts        map[intake.Step]string
	defaultReply string
}

// NewStepScript returns the per-step scripted replies used when option
// submission cannot be resolved remotely.
func NewStepScript() *Scripted {
	return &Scripted{texts: stepScripts, defaultReply: stepScripts[intake.StepExploring]}
}

// NewEmailPrompt returns the single fixed reply used when free-text
// submission cannot be resolved remotely: ask for an email address.
func NewEmailPrompt() *Scripted {
	return &Scripted{defaultReply: askEmailScript}
}

// Resolve returns the scripted reply for the step, ignoring history.
func (s *Scripted) Resolve(_ context.Context, _ []intake.Message, step intake.Step, _ string) (string, error) {
	if text, ok := s.texts[step]; ok {
		return text, nil
	}
	return s.defaultReply, nil
}

// ForwardingAddress exposes the fixed inbox referenced in confirmation copy.
func ForwardingAddress() string {
	return forwardingAddress
}
