package crewnode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/hotel-finder/agent/contract"
	toolx "github.com/tanpawarit/hotel-finder/agent/tool"
)

// PlanTasks runs the planning pre-pass and appends each plan to its task
// instruction. A nil planner leaves the instructions untouched.
func PlanTasks(
	ctx context.Context,
	in *GraphState,
	planner contractx.Planner,
	tasks []contractx.TaskSpec,
	roles map[string]contractx.RoleRef,
) (*GraphState, error) {
	if in == nil {
		return nil, contractx.NewPipelineError(contractx.StagePlanning,
			fmt.Errorf("%w: graph state is nil", contractx.ErrValidation))
	}
	if planner == nil {
		return in, nil
	}

	req := contractx.PlannerRequest{Tasks: make([]contractx.PlannedTask, 0, len(tasks))}
	for _, task := range tasks {
		planned := contractx.PlannedTask{
			Name:        task.Name,
			Role:        task.Role,
			Instruction: in.Instructions[task.Name],
		}
		for _, info := range toolx.InfosFor(roles[task.Role].Capabilities) {
			planned.Tools = append(planned.Tools, info.Name)
		}
		req.Tasks = append(req.Tasks, planned)
	}

	resp, err := planner.Plan(ctx, req)
	if err != nil {
		return nil, contractx.NewPipelineError(contractx.StagePlanning, err)
	}

	in.Plans = resp.Plans
	for name, plan := range resp.Plans {
		if base, ok := in.Instructions[name]; ok {
			in.Instructions[name] = base + "\n\n" + plan
		}
	}
	return in, nil
}
