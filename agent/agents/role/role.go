package role

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/hotel-finder/agent/contract"
	promptx "github.com/tanpawarit/hotel-finder/agent/prompt"
	toolx "github.com/tanpawarit/hotel-finder/agent/tool"
)

const (
	DefaultMaxIterations = 15

	finalAnswerNudge = "You have reached the maximum number of steps for this task. " +
		"Do not call any tools. Give your best final answer now."
)

type Config struct {
	MaxIterations int
}

var _ contractx.Executor = (*Agent)(nil)

// Agent runs tasks for a single role. Every model call is admitted through
// the shared throttle.
type Agent struct {
	role          contractx.RoleRef
	toolRunner    compose.Runnable[map[string]any, *schema.Message]
	answerRunner  compose.Runnable[map[string]any, *schema.Message]
	taskTemplate  einoprompt.ChatTemplate
	execute       toolx.Executor
	allowedTools  map[string]struct{}
	throttle      contractx.Throttle
	maxIterations int
}

func New(
	ctx context.Context,
	role contractx.RoleRef,
	chatModel einomodel.ToolCallingChatModel,
	provider contractx.CapabilityProvider,
	throttle contractx.Throttle,
	prompts promptx.PromptSet,
	cfg Config,
) (*Agent, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: role=%s: chat model is required", contractx.ErrValidation, role.Name)
	}
	if throttle == nil {
		return nil, fmt.Errorf("%w: role=%s: throttle is required", contractx.ErrValidation, role.Name)
	}
	if strings.TrimSpace(prompts.Role) == "" || strings.TrimSpace(prompts.Task) == "" {
		return nil, fmt.Errorf("%w: role and task prompts", contractx.ErrPromptMissing)
	}

	answerRunner, err := compileTurnGraph(ctx, chatModel, prompts.Role, "role.answer_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile answer graph for role=%s: %v", contractx.ErrModelInvoke, role.Name, err)
	}

	tools, execute := toolx.BuildForRole(role, provider)
	toolRunner := answerRunner
	if len(tools) > 0 {
		toolModel, err := chatModel.WithTools(tools)
		if err != nil {
			return nil, fmt.Errorf("%w: bind tools for role=%s: %v", contractx.ErrModelInvoke, role.Name, err)
		}
		toolRunner, err = compileTurnGraph(ctx, toolModel, prompts.Role, "role.tool_graph")
		if err != nil {
			return nil, fmt.Errorf("%w: compile tool graph for role=%s: %v", contractx.ErrModelInvoke, role.Name, err)
		}
	}

	allowedTools := make(map[string]struct{}, len(tools))
	for _, t := range tools {
		if t == nil || strings.TrimSpace(t.Name) == "" {
			continue
		}
		allowedTools[t.Name] = struct{}{}
	}

	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	return &Agent{
		role:          role,
		toolRunner:    toolRunner,
		answerRunner:  answerRunner,
		taskTemplate:  einoprompt.FromMessages(schema.FString, schema.UserMessage(prompts.Task)),
		execute:       execute,
		allowedTools:  allowedTools,
		throttle:      throttle,
		maxIterations: maxIterations,
	}, nil
}

func (a *Agent) Role() contractx.RoleRef {
	return a.role
}

func (a *Agent) Execute(ctx context.Context, req contractx.TaskRequest) (contractx.TaskOutput, error) {
	logger := zerolog.Ctx(ctx).With().Str("role", a.role.Name).Str("task", req.Task.Name).Logger()

	instruction := strings.TrimSpace(req.Instruction)
	if instruction == "" {
		return contractx.TaskOutput{}, fmt.Errorf("%w: task=%s has an empty instruction", contractx.ErrValidation, req.Task.Name)
	}

	taskMsgs, err := a.taskTemplate.Format(ctx, map[string]any{
		"instruction":     instruction,
		"expected_output": req.Task.ExampleOutput,
	})
	if err != nil {
		return contractx.TaskOutput{}, fmt.Errorf("%w: format task=%s: %v", contractx.ErrValidation, req.Task.Name, err)
	}

	history := contextMessages(req.Context)
	history = append(history, taskMsgs...)

	for iteration := 1; iteration <= a.maxIterations; iteration++ {
		msg, err := a.turn(ctx, a.toolRunner, history)
		if err != nil {
			return contractx.TaskOutput{}, err
		}

		if len(msg.ToolCalls) == 0 {
			answer := strings.TrimSpace(msg.Content)
			if answer == "" {
				return contractx.TaskOutput{}, fmt.Errorf("%w: role=%s returned an empty answer", contractx.ErrSchemaViolation, a.role.Name)
			}
			logger.Info().Int("iteration", iteration).Msg("task answered")
			return a.output(req, instruction, answer), nil
		}

		toolRequests, err := toToolRequests(msg.ToolCalls)
		if err != nil {
			return contractx.TaskOutput{}, err
		}
		for _, tr := range toolRequests {
			if _, ok := a.allowedTools[tr.Tool]; !ok {
				return contractx.TaskOutput{}, fmt.Errorf("%w: tool=%s is not allowed for role=%s", contractx.ErrSchemaViolation, tr.Tool, a.role.Name)
			}
		}

		history = append(history, msg)
		for _, tr := range toolRequests {
			logger.Info().Int("iteration", iteration).Str("tool", tr.Tool).Msg("tool call")
			result, err := a.execute(ctx, tr.Tool, tr.Args)
			if err != nil {
				return contractx.TaskOutput{}, err
			}
			history = append(history, schema.ToolMessage(encodeToolResult(result), tr.ID))
		}
	}

	logger.Warn().Int("max_iterations", a.maxIterations).Msg("iteration limit reached, forcing final answer")
	history = append(history, schema.UserMessage(finalAnswerNudge))
	msg, err := a.turn(ctx, a.answerRunner, history)
	if err != nil {
		return contractx.TaskOutput{}, err
	}
	answer := strings.TrimSpace(msg.Content)
	if len(msg.ToolCalls) > 0 || answer == "" {
		return contractx.TaskOutput{}, fmt.Errorf("%w: role=%s task=%s", contractx.ErrIterationLimit, a.role.Name, req.Task.Name)
	}
	return a.output(req, instruction, answer), nil
}

func (a *Agent) turn(
	ctx context.Context,
	runner compose.Runnable[map[string]any, *schema.Message],
	history []*schema.Message,
) (*schema.Message, error) {
	if err := a.throttle.Wait(ctx); err != nil {
		return nil, err
	}

	msg, err := runner.Invoke(ctx, map[string]any{
		"role":      a.role.Name,
		"goal":      a.role.Goal,
		"backstory": a.role.Backstory,
		historyKey:  history,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: role=%s: %v", contractx.ErrModelInvoke, a.role.Name, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("%w: role=%s: empty model response", contractx.ErrSchemaViolation, a.role.Name)
	}
	return msg, nil
}

func (a *Agent) output(req contractx.TaskRequest, instruction string, answer string) contractx.TaskOutput {
	return contractx.TaskOutput{
		Task:        req.Task.Name,
		Role:        a.role.Name,
		Instruction: instruction,
		Output:      answer,
	}
}

// contextMessages replays earlier tasks as instruction/answer pairs. Tool
// transcripts of earlier tasks are not carried over.
func contextMessages(conv *contractx.ConversationContext) []*schema.Message {
	outputs := conv.Outputs()
	msgs := make([]*schema.Message, 0, 2*len(outputs)+1)
	for _, out := range outputs {
		msgs = append(msgs,
			schema.UserMessage(out.Instruction),
			schema.AssistantMessage(out.Output, nil),
		)
	}
	return msgs
}

func toToolRequests(calls []schema.ToolCall) ([]contractx.ToolRequest, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	reqs := make([]contractx.ToolRequest, 0, len(calls))
	for _, call := range calls {
		tool := strings.TrimSpace(call.Function.Name)
		if tool == "" {
			return nil, fmt.Errorf("%w: tool call name is empty", contractx.ErrSchemaViolation)
		}

		args := map[string]any{}
		rawArgs := strings.TrimSpace(call.Function.Arguments)
		if rawArgs != "" {
			if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
				return nil, fmt.Errorf("%w: invalid tool args for tool=%s: %v", contractx.ErrSchemaViolation, tool, err)
			}
		}

		reqs = append(reqs, contractx.ToolRequest{
			ID:   call.ID,
			Tool: tool,
			Args: args,
		})
	}
	return reqs, nil
}

func encodeToolResult(r contractx.ToolResult) string {
	if r.Error != "" {
		return "error: " + r.Error
	}
	if s, ok := r.Result.(string); ok {
		return s
	}
	raw, err := json.Marshal(r.Result)
	if err != nil {
		return fmt.Sprintf("%v", r.Result)
	}
	return string(raw)
}
