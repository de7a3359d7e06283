package intake

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/northpeak-analytics/site-backend/internal/model/intake"
)

func TestNextStepFromInitial(t *testing.T) {
	require.Equal(t, intake.StepConsulting, nextStep(intake.StepInitial, OptionConsulting))
	require.Equal(t, intake.StepPowerBI, nextStep(intake.StepInitial, OptionPowerBI))
	require.Equal(t, intake.StepExploring, nextStep(intake.StepInitial, OptionExploring))
}

func TestNextStepUnrecognizedOptionExplores(t *testing.T) {
	require.Equal(t, intake.StepExploring, nextStep(intake.StepInitial, "Something Else Entirely"))
}

func TestNextStepIsNonReturning(t *testing.T) {
	for _, step := range []intake.Step{intake.StepConsulting, intake.StepPowerBI, intake.StepExploring} {
		require.Equal(t, step, nextStep(step, OptionConsulting), "step %s should not transition again", step)
	}
}
