package prompt

import (
	"errors"
	"strings"
	"testing"

	contractx "github.com/tanpawarit/hotel-finder/agent/contract"
)

func TestLoadCrewEmbedded(t *testing.T) {
	t.Parallel()

	def, err := LoadCrew()
	if err != nil {
		t.Fatalf("LoadCrew() error = %v", err)
	}

	hotels, ok := def.Role(contractx.RoleHotels)
	if !ok {
		t.Fatal("Hotels role missing")
	}
	if !hotels.Capabilities.Has(contractx.CapabilitySearch) || !hotels.Capabilities.Has(contractx.CapabilityBrowse) {
		t.Fatalf("Hotels role must hold search and browse, got %v", hotels.Capabilities)
	}
	if hotels.CanDelegate {
		t.Fatal("Hotels role must not delegate")
	}

	summarize, ok := def.Role(contractx.RoleSummarize)
	if !ok {
		t.Fatal("Summarize role missing")
	}
	if !summarize.Capabilities.Empty() {
		t.Fatalf("Summarize role must have no tools, got %v", summarize.Capabilities)
	}

	if len(def.Tasks) != 2 || def.Tasks[0].Name != contractx.TaskSearch || def.Tasks[1].Name != contractx.TaskEnrich {
		t.Fatalf("unexpected task order: %#v", def.Tasks)
	}
	for _, task := range def.Tasks {
		if task.Role != contractx.RoleHotels {
			t.Fatalf("task=%s must run on Hotels, got %s", task.Name, task.Role)
		}
	}
	if !strings.Contains(def.Tasks[0].InstructionTemplate, "{request}") ||
		!strings.Contains(def.Tasks[0].InstructionTemplate, "{current_year}") {
		t.Fatalf("search template lacks placeholders: %q", def.Tasks[0].InstructionTemplate)
	}
	if strings.Contains(def.Tasks[1].InstructionTemplate, "{") {
		t.Fatalf("enrich template must have no placeholders: %q", def.Tasks[1].InstructionTemplate)
	}
	if !strings.Contains(def.Tasks[0].ExampleOutput, "Hilton Times Square") {
		t.Fatalf("unexpected search example: %q", def.Tasks[0].ExampleOutput)
	}
}

func TestParseCrewRejectsDelegation(t *testing.T) {
	t.Parallel()

	raw := []byte(`
roles:
  - name: Boss
    allow_delegation: true
tasks:
  - name: t
    role: Boss
    description: do it
`)
	_, err := ParseCrew(raw)
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestParseCrewRejectsUnknownRoleAndTool(t *testing.T) {
	t.Parallel()

	_, err := ParseCrew([]byte(`
roles:
  - name: A
    tools: [teleport]
tasks:
  - name: t
    role: A
    description: x
`))
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown tool, got %v", err)
	}

	_, err = ParseCrew([]byte(`
roles:
  - name: A
tasks:
  - name: t
    role: B
    description: x
`))
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown role, got %v", err)
	}
}

func TestLoadPromptSetTrimmed(t *testing.T) {
	t.Parallel()

	p := LoadPromptSet()
	for name, v := range map[string]string{"role": p.Role, "task": p.Task, "planner": p.Planner} {
		if v == "" || v != strings.TrimSpace(v) {
			t.Fatalf("prompt %s is empty or untrimmed", name)
		}
	}
	if strings.ContainsAny(p.Planner, "{}") {
		t.Fatal("planner prompt must not contain template braces")
	}
}
