package intake

import (
	"github.com/qmuntal/stateless"

	"github.com/northpeak-analytics/site-backend/internal/model/intake"
)

// Options presented alongside the greeting message.
const (
	OptionConsulting = "Strategic Consulting"
	OptionPowerBI    = "Power BI Dashboard"
	OptionExploring  = "Just Exploring"
)

// GreetingOptions returns the selectable options in display order.
func GreetingOptions() []string {
	return []string{OptionConsulting, OptionPowerBI, OptionExploring}
}

// nextStep advances the qualification flow for a selected option. Steps never
// return to an earlier state: only the initial step permits transitions, so a
// selection made later in the conversation leaves the step untouched.
func nextStep(current intake.Step, option string) intake.Step {
	machine := stateless.NewStateMachine(stateless.State(current))

	machine.Configure(stateless.State(intake.StepInitial)).
		Permit(stateless.Trigger(OptionConsulting), stateless.State(intake.StepConsulting)).
		Permit(stateless.Trigger(OptionPowerBI), stateless.State(intake.StepPowerBI)).
		Permit(stateless.Trigger(OptionExploring), stateless.State(intake.StepExploring))

	trigger := option
	switch option {
	case OptionConsulting, OptionPowerBI:
	default:
		// Any other recognized selection funnels into the exploring track.
		trigger = OptionExploring
	}

	if err := machine.Fire(stateless.Trigger(trigger)); err != nil {
		return current
	}

	step, ok := machine.MustState().(intake.Step)
	if !ok {
		return current
	}
	return step
}
