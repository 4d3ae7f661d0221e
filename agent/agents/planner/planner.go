package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	contractx "github.com/tanpawarit/hotel-finder/agent/contract"
)

var _ contractx.Planner = (*Planner)(nil)

// Planner asks the shared model for one step-by-step plan per task before
// the crew executes anything.
type Planner struct {
	runner   compose.Runnable[map[string]any, plannerLLMOutput]
	throttle contractx.Throttle
}

type plannerLLMOutput struct {
	Plans []taskPlan `json:"plans"`
}

type taskPlan struct {
	Task string `json:"task"`
	Plan string `json:"plan"`
}

func New(ctx context.Context, chatModel einomodel.BaseChatModel, throttle contractx.Throttle, systemPrompt string) (*Planner, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: planner chat model is required", contractx.ErrValidation)
	}
	if throttle == nil {
		return nil, fmt.Errorf("%w: planner throttle is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: planner prompt", contractx.ErrPromptMissing)
	}

	runner, err := compileStructuredLLMGraph[plannerLLMOutput](ctx, chatModel, systemPrompt, "planner.model_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile planner graph: %v", contractx.ErrModelInvoke, err)
	}
	return &Planner{runner: runner, throttle: throttle}, nil
}

func (p *Planner) Plan(ctx context.Context, req contractx.PlannerRequest) (contractx.PlannerResponse, error) {
	if len(req.Tasks) == 0 {
		return contractx.PlannerResponse{}, fmt.Errorf("%w: no tasks to plan", contractx.ErrValidation)
	}

	inputBytes, err := json.Marshal(req)
	if err != nil {
		return contractx.PlannerResponse{}, fmt.Errorf("%w: marshal planner payload: %v", contractx.ErrValidation, err)
	}

	if err := p.throttle.Wait(ctx); err != nil {
		return contractx.PlannerResponse{}, err
	}
	out, err := p.runner.Invoke(ctx, map[string]any{
		"input": string(inputBytes),
	})
	if err != nil {
		return contractx.PlannerResponse{}, fmt.Errorf("%w: planner invoke: %v", contractx.ErrModelInvoke, err)
	}

	return validatePlannerOutput(req, out)
}

func validatePlannerOutput(req contractx.PlannerRequest, out plannerLLMOutput) (contractx.PlannerResponse, error) {
	known := make(map[string]struct{}, len(req.Tasks))
	for _, t := range req.Tasks {
		known[t.Name] = struct{}{}
	}

	plans := make(map[string]string, len(req.Tasks))
	for _, p := range out.Plans {
		name := strings.TrimSpace(p.Task)
		if _, ok := known[name]; !ok {
			return contractx.PlannerResponse{}, fmt.Errorf("%w: plan for unknown task=%q", contractx.ErrSchemaViolation, name)
		}
		plan := strings.TrimSpace(p.Plan)
		if plan == "" {
			return contractx.PlannerResponse{}, fmt.Errorf("%w: empty plan for task=%s", contractx.ErrSchemaViolation, name)
		}
		plans[name] = plan
	}

	for _, t := range req.Tasks {
		if _, ok := plans[t.Name]; !ok {
			return contractx.PlannerResponse{}, fmt.Errorf("%w: missing plan for task=%s", contractx.ErrSchemaViolation, t.Name)
		}
	}
	return contractx.PlannerResponse{Plans: plans}, nil
}
