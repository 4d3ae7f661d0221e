package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/hotel-finder/agent/contract"
	"gopkg.in/yaml.v3"
)

var (
	//go:embed template/role.txt
	roleRaw string

	//go:embed template/task.txt
	taskRaw string

	//go:embed template/planner.txt
	plannerRaw string

	//go:embed template/crew.yaml
	crewRaw []byte
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Role    string
	Task    string
	Planner string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Role:    strings.TrimSpace(roleRaw),
		Task:    strings.TrimSpace(taskRaw),
		Planner: strings.TrimSpace(plannerRaw),
	}
}

// CrewDefinition is the ordered set of roles and tasks a crew runs.
type CrewDefinition struct {
	Roles []contractx.RoleRef
	Tasks []contractx.TaskSpec
}

func (d CrewDefinition) Role(name string) (contractx.RoleRef, bool) {
	for _, r := range d.Roles {
		if r.Name == name {
			return r, true
		}
	}
	return contractx.RoleRef{}, false
}

func (d CrewDefinition) Task(name string) (contractx.TaskSpec, bool) {
	for _, t := range d.Tasks {
		if t.Name == name {
			return t, true
		}
	}
	return contractx.TaskSpec{}, false
}

type crewFile struct {
	Roles []roleEntry `yaml:"roles"`
	Tasks []taskEntry `yaml:"tasks"`
}

type roleEntry struct {
	Name            string   `yaml:"name"`
	Goal            string   `yaml:"goal"`
	Backstory       string   `yaml:"backstory"`
	Tools           []string `yaml:"tools"`
	AllowDelegation bool     `yaml:"allow_delegation"`
}

type taskEntry struct {
	Name           string `yaml:"name"`
	Role           string `yaml:"role"`
	Description    string `yaml:"description"`
	ExpectedOutput string `yaml:"expected_output"`
}

// LoadCrew parses the embedded crew definition.
func LoadCrew() (CrewDefinition, error) {
	return ParseCrew(crewRaw)
}

func ParseCrew(raw []byte) (CrewDefinition, error) {
	var f crewFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return CrewDefinition{}, fmt.Errorf("%w: parse crew definition: %v", contractx.ErrPromptMissing, err)
	}

	def := CrewDefinition{}
	for _, r := range f.Roles {
		role, err := r.toRole()
		if err != nil {
			return CrewDefinition{}, err
		}
		if _, dup := def.Role(role.Name); dup {
			return CrewDefinition{}, fmt.Errorf("%w: duplicate role=%s", contractx.ErrValidation, role.Name)
		}
		def.Roles = append(def.Roles, role)
	}

	for _, t := range f.Tasks {
		task := contractx.TaskSpec{
			Name:                strings.TrimSpace(t.Name),
			Role:                strings.TrimSpace(t.Role),
			InstructionTemplate: strings.TrimSpace(t.Description),
			ExampleOutput:       strings.TrimSpace(t.ExpectedOutput),
		}
		if task.Name == "" || task.InstructionTemplate == "" {
			return CrewDefinition{}, fmt.Errorf("%w: task name and description are required", contractx.ErrPromptMissing)
		}
		if _, ok := def.Role(task.Role); !ok {
			return CrewDefinition{}, fmt.Errorf("%w: task=%s references unknown role=%s", contractx.ErrValidation, task.Name, task.Role)
		}
		if _, dup := def.Task(task.Name); dup {
			return CrewDefinition{}, fmt.Errorf("%w: duplicate task=%s", contractx.ErrValidation, task.Name)
		}
		def.Tasks = append(def.Tasks, task)
	}

	if len(def.Tasks) == 0 {
		return CrewDefinition{}, fmt.Errorf("%w: crew has no tasks", contractx.ErrPromptMissing)
	}
	return def, nil
}

func (r roleEntry) toRole() (contractx.RoleRef, error) {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return contractx.RoleRef{}, fmt.Errorf("%w: role name is required", contractx.ErrPromptMissing)
	}
	if r.AllowDelegation {
		return contractx.RoleRef{}, fmt.Errorf("%w: role=%s: delegation is not supported", contractx.ErrValidation, name)
	}

	caps := make([]contractx.Capability, 0, len(r.Tools))
	for _, t := range r.Tools {
		c := contractx.Capability(strings.TrimSpace(t))
		switch c {
		case contractx.CapabilitySearch, contractx.CapabilityBrowse:
			caps = append(caps, c)
		default:
			return contractx.RoleRef{}, fmt.Errorf("%w: role=%s has unknown tool=%q", contractx.ErrValidation, name, t)
		}
	}

	return contractx.RoleRef{
		Name:         name,
		Goal:         strings.TrimSpace(r.Goal),
		Backstory:    strings.TrimSpace(r.Backstory),
		Capabilities: contractx.NewCapabilitySet(caps...),
	}, nil
}
