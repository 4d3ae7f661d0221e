package crewnode

import (
	"context"
	"fmt"
	"strings"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/hotel-finder/agent/contract"
)

// RenderTasks substitutes the request variables into every task instruction.
func RenderTasks(ctx context.Context, in *GraphState, tasks []contractx.TaskSpec) (*GraphState, error) {
	if in == nil {
		return nil, contractx.NewPipelineError(contractx.StageValidate,
			fmt.Errorf("%w: graph state is nil", contractx.ErrValidation))
	}

	vars := in.Request.Vars()
	in.Instructions = make(map[string]string, len(tasks))
	for _, task := range tasks {
		text, err := renderInstruction(ctx, task.InstructionTemplate, vars)
		if err != nil {
			return nil, contractx.NewPipelineError(contractx.StageValidate,
				fmt.Errorf("%w: render task=%s: %v", contractx.ErrValidation, task.Name, err))
		}
		in.Instructions[task.Name] = text
	}
	return in, nil
}

func renderInstruction(ctx context.Context, tpl string, vars map[string]any) (string, error) {
	msgs, err := einoprompt.FromMessages(schema.FString, schema.UserMessage(tpl)).Format(ctx, vars)
	if err != nil {
		return "", err
	}
	if len(msgs) != 1 {
		return "", fmt.Errorf("expected one rendered message, got %d", len(msgs))
	}
	return strings.TrimSpace(msgs[0].Content), nil
}
