package crew

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	contractx "github.com/tanpawarit/hotel-finder/agent/contract"
	nodex "github.com/tanpawarit/hotel-finder/agent/nodes/crew"
)

func (c *Crew) compileRunGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("validate_run",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRun(in, c.creds, c.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_run: %w", err)
	}

	if err := graph.AddLambdaNode("render_tasks",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.RenderTasks(ctx, in, c.def.Tasks)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node render_tasks: %w", err)
	}

	if err := graph.AddLambdaNode("plan_tasks",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.PlanTasks(ctx, in, c.planner, c.def.Tasks, c.roleRefs())
		}),
	); err != nil {
		return nil, fmt.Errorf("add node plan_tasks: %w", err)
	}

	prev := "plan_tasks"
	edges := [][2]string{
		{compose.START, "validate_run"},
		{"validate_run", "render_tasks"},
		{"render_tasks", "plan_tasks"},
	}

	for _, task := range c.def.Tasks {
		task := task
		node := "task_" + task.Name
		executor := c.agents[task.Role]
		if err := graph.AddLambdaNode(node,
			compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
				return nodex.RunTask(ctx, in, task, executor)
			}),
		); err != nil {
			return nil, fmt.Errorf("add node %s: %w", node, err)
		}
		edges = append(edges, [2]string{prev, node})
		prev = node
	}

	if err := graph.AddLambdaNode("finalize",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.Finalize(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize: %w", err)
	}
	edges = append(edges,
		[2]string{prev, "finalize"},
		[2]string{"finalize", compose.END},
	)

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("crew.run"))
	if err != nil {
		return nil, fmt.Errorf("compile crew graph: %w", err)
	}
	return runner, nil
}

func (c *Crew) roleRefs() map[string]contractx.RoleRef {
	out := make(map[string]contractx.RoleRef, len(c.def.Roles))
	for _, r := range c.def.Roles {
		out[r.Name] = r
	}
	return out
}
