package crewnode

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	contractx "github.com/tanpawarit/hotel-finder/agent/contract"
)

var testTasks = []contractx.TaskSpec{
	{Name: contractx.TaskSearch, Role: contractx.RoleHotels, InstructionTemplate: "Search hotels according to criteria {request}. Current year: {current_year}"},
	{Name: contractx.TaskEnrich, Role: contractx.RoleHotels, InstructionTemplate: "Search for hotel booking providers."},
}

var testRoles = map[string]contractx.RoleRef{
	contractx.RoleHotels: {
		Name:         contractx.RoleHotels,
		Capabilities: contractx.NewCapabilitySet(contractx.CapabilitySearch, contractx.CapabilityBrowse),
	},
}

func newState(t *testing.T) *GraphState {
	t.Helper()
	state, err := ValidateRun(GraphInput{Request: contractx.RenderedRequest{
		Text:        " hotels in Lisbon from May 01 to May 03 for 2 adults ",
		CurrentYear: 2026,
	}}, &contractx.Credentials{BrowserbaseAPIKey: "k"}, time.Now)
	if err != nil {
		t.Fatalf("ValidateRun() error = %v", err)
	}
	return state
}

func assertStage(t *testing.T, err error, stage string) {
	t.Helper()
	var pe *contractx.PipelineError
	if !errors.As(err, &pe) || pe.Stage != stage {
		t.Fatalf("expected PipelineError at stage=%s, got %v", stage, err)
	}
}

func TestValidateRun(t *testing.T) {
	t.Parallel()

	state := newState(t)
	if state.Request.Text != "hotels in Lisbon from May 01 to May 03 for 2 adults" {
		t.Fatalf("request not trimmed: %q", state.Request.Text)
	}
	if state.Context == nil || len(state.Context.Outputs()) != 0 {
		t.Fatal("expected an empty conversation context")
	}

	_, err := ValidateRun(GraphInput{Request: contractx.RenderedRequest{Text: "x", CurrentYear: 2026}}, nil, time.Now)
	assertStage(t, err, contractx.StageValidate)
	if !errors.Is(err, contractx.ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}

	_, err = ValidateRun(GraphInput{Request: contractx.RenderedRequest{Text: "x"}}, &contractx.Credentials{BrowserbaseAPIKey: "k"}, time.Now)
	assertStage(t, err, contractx.StageValidate)
}

func TestRenderTasks(t *testing.T) {
	t.Parallel()

	state, err := RenderTasks(context.Background(), newState(t), testTasks)
	if err != nil {
		t.Fatalf("RenderTasks() error = %v", err)
	}
	want := "Search hotels according to criteria hotels in Lisbon from May 01 to May 03 for 2 adults. Current year: 2026"
	if got := state.Instructions[contractx.TaskSearch]; got != want {
		t.Fatalf("search instruction = %q", got)
	}
	if got := state.Instructions[contractx.TaskEnrich]; got != "Search for hotel booking providers." {
		t.Fatalf("enrich instruction = %q", got)
	}
}

type fakePlanner struct {
	got  contractx.PlannerRequest
	resp contractx.PlannerResponse
	err  error
}

func (f *fakePlanner) Plan(ctx context.Context, req contractx.PlannerRequest) (contractx.PlannerResponse, error) {
	f.got = req
	return f.resp, f.err
}

func TestPlanTasksAppendsPlans(t *testing.T) {
	t.Parallel()

	state, err := RenderTasks(context.Background(), newState(t), testTasks)
	if err != nil {
		t.Fatalf("RenderTasks() error = %v", err)
	}

	planner := &fakePlanner{resp: contractx.PlannerResponse{Plans: map[string]string{
		contractx.TaskSearch: "1. build url",
		contractx.TaskEnrich: "1. compare providers",
	}}}
	state, err = PlanTasks(context.Background(), state, planner, testTasks, testRoles)
	if err != nil {
		t.Fatalf("PlanTasks() error = %v", err)
	}

	if !strings.HasSuffix(state.Instructions[contractx.TaskSearch], "\n\n1. build url") {
		t.Fatalf("plan not appended: %q", state.Instructions[contractx.TaskSearch])
	}
	if len(planner.got.Tasks) != 2 {
		t.Fatalf("planner must see every task, got %d", len(planner.got.Tasks))
	}
	if tools := strings.Join(planner.got.Tasks[0].Tools, ","); tools != "hotels_search,browser_fetch" {
		t.Fatalf("unexpected planner tools: %s", tools)
	}
}

func TestPlanTasksWithoutPlanner(t *testing.T) {
	t.Parallel()

	state, _ := RenderTasks(context.Background(), newState(t), testTasks)
	before := state.Instructions[contractx.TaskSearch]

	state, err := PlanTasks(context.Background(), state, nil, testTasks, testRoles)
	if err != nil {
		t.Fatalf("PlanTasks() error = %v", err)
	}
	if state.Instructions[contractx.TaskSearch] != before {
		t.Fatal("instructions must be untouched without a planner")
	}
}

func TestPlanTasksFailure(t *testing.T) {
	t.Parallel()

	state, _ := RenderTasks(context.Background(), newState(t), testTasks)
	_, err := PlanTasks(context.Background(), state, &fakePlanner{err: contractx.ErrSchemaViolation}, testTasks, testRoles)
	assertStage(t, err, contractx.StagePlanning)
	if !errors.Is(err, contractx.ErrPipelineExecution) || !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("unexpected error chain: %v", err)
	}
}

type fakeExecutor struct {
	got    contractx.TaskRequest
	out    string
	err    error
	panics bool
}

func (f *fakeExecutor) Role() contractx.RoleRef { return testRoles[contractx.RoleHotels] }

func (f *fakeExecutor) Execute(ctx context.Context, req contractx.TaskRequest) (contractx.TaskOutput, error) {
	if f.panics {
		panic("executor blew up")
	}
	f.got = req
	if f.err != nil {
		return contractx.TaskOutput{}, f.err
	}
	return contractx.TaskOutput{Task: req.Task.Name, Role: contractx.RoleHotels, Instruction: req.Instruction, Output: f.out}, nil
}

func TestRunTaskCarriesContext(t *testing.T) {
	t.Parallel()

	state, _ := RenderTasks(context.Background(), newState(t), testTasks)

	search := &fakeExecutor{out: "top 5 hotels"}
	state, err := RunTask(context.Background(), state, testTasks[0], search)
	if err != nil {
		t.Fatalf("RunTask(search) error = %v", err)
	}

	enrich := &fakeExecutor{out: "providers"}
	state, err = RunTask(context.Background(), state, testTasks[1], enrich)
	if err != nil {
		t.Fatalf("RunTask(enrich) error = %v", err)
	}

	prior := enrich.got.Context.Outputs()
	if len(prior) != 2 || prior[0].Output != "top 5 hotels" {
		t.Fatalf("enrich must see the search output, got %+v", prior)
	}

	out, err := Finalize(state)
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if out.Result != "providers" {
		t.Fatalf("result = %q", out.Result)
	}
}

func TestRunTaskFailures(t *testing.T) {
	t.Parallel()

	state, _ := RenderTasks(context.Background(), newState(t), testTasks)

	_, err := RunTask(context.Background(), state, testTasks[0], &fakeExecutor{err: contractx.ErrModelInvoke})
	assertStage(t, err, contractx.StageSearch)

	_, err = RunTask(context.Background(), state, testTasks[1], &fakeExecutor{panics: true})
	assertStage(t, err, contractx.StageEnrich)
	if !strings.Contains(err.Error(), "executor blew up") {
		t.Fatalf("panic value missing: %v", err)
	}

	_, err = RunTask(context.Background(), state, testTasks[1], nil)
	assertStage(t, err, contractx.StageEnrich)
}

func TestFinalizeRejectsEmptyOutput(t *testing.T) {
	t.Parallel()

	_, err := Finalize(&GraphState{})
	assertStage(t, err, contractx.StageFinalize)
}
