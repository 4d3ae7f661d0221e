package crewnode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/hotel-finder/agent/contract"
)

// Finalize returns the last task's output. Earlier outputs stay internal.
func Finalize(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, contractx.NewPipelineError(contractx.StageFinalize,
			fmt.Errorf("%w: graph state is nil", contractx.ErrValidation))
	}

	result := strings.TrimSpace(in.Last.Output)
	if result == "" {
		return GraphOutput{}, contractx.NewPipelineError(contractx.StageFinalize,
			fmt.Errorf("%w: final task returned empty output", contractx.ErrValidation))
	}
	return GraphOutput{Result: result}, nil
}
