package crewnode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/hotel-finder/agent/contract"
)

// StageFor maps a task name to the stage reported on failure.
func StageFor(taskName string) string {
	switch taskName {
	case contractx.TaskSearch:
		return contractx.StageSearch
	case contractx.TaskEnrich:
		return contractx.StageEnrich
	default:
		return "task:" + taskName
	}
}

// RunTask executes one task and records its output in the conversation
// context for the tasks after it. A panic inside the executor becomes a
// pipeline error.
func RunTask(
	ctx context.Context,
	in *GraphState,
	task contractx.TaskSpec,
	executor contractx.Executor,
) (out *GraphState, err error) {
	stage := StageFor(task.Name)
	if in == nil {
		return nil, contractx.NewPipelineError(stage, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation))
	}
	if executor == nil {
		return nil, contractx.NewPipelineError(stage, fmt.Errorf("%w: no executor for role=%s", contractx.ErrValidation, task.Role))
	}

	defer func() {
		if r := recover(); r != nil {
			out, err = nil, contractx.NewPipelineError(stage, fmt.Errorf("panic in task=%s: %v", task.Name, r))
		}
	}()

	result, err := executor.Execute(ctx, contractx.TaskRequest{
		Task:        task,
		Instruction: in.Instructions[task.Name],
		Context:     in.Context,
	})
	if err != nil {
		return nil, contractx.NewPipelineError(stage, err)
	}

	in.Context.Append(result)
	in.Last = result
	return in, nil
}
