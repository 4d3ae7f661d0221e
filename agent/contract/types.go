package contract

import (
	"slices"
	"strings"
	"time"
)

type Capability string

const (
	CapabilitySearch Capability = "hotels.search"
	CapabilityBrowse Capability = "browser.fetch"
)

// CapabilitySet is the fixed set of tools a role may call.
type CapabilitySet []Capability

func NewCapabilitySet(caps ...Capability) CapabilitySet {
	out := make(CapabilitySet, 0, len(caps))
	for _, c := range caps {
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}

func (s CapabilitySet) Has(c Capability) bool {
	return slices.Contains(s, c)
}

func (s CapabilitySet) Empty() bool {
	return len(s) == 0
}

const (
	RoleHotels    = "Hotels"
	RoleSummarize = "Summarize"

	TaskSearch = "search"
	TaskEnrich = "enrich"
)

type RoleRef struct {
	Name         string
	Goal         string
	Backstory    string
	Capabilities CapabilitySet
	CanDelegate  bool
}

type TaskSpec struct {
	Name                string
	InstructionTemplate string
	ExampleOutput       string
	Role                string
}

// Credentials is created once at startup and shared by pointer. Nothing
// mutates it after initialization.
type Credentials struct {
	BrowserbaseAPIKey string
}

func (c *Credentials) HasBrowserbase() bool {
	return c != nil && strings.TrimSpace(c.BrowserbaseAPIKey) != ""
}

type SearchRequest struct {
	Location string
	CheckIn  time.Time
	CheckOut time.Time
	Adults   int
}

type RenderedRequest struct {
	Text        string
	CurrentYear int
}

// Vars returns the template variables bound into task instructions.
func (r RenderedRequest) Vars() map[string]any {
	return map[string]any{
		"request":      r.Text,
		"current_year": r.CurrentYear,
	}
}

type HotelQuery struct {
	Location string `json:"location"`
	CheckIn  string `json:"check_in_date"`
	CheckOut string `json:"check_out_date"`
	Adults   int    `json:"num_adults"`
	Rooms    int    `json:"num_rooms"`
}

type ToolRequest struct {
	ID   string         `json:"id,omitempty"`
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

type ToolResult struct {
	Tool   string `json:"tool"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

type TaskOutput struct {
	Task        string `json:"task"`
	Role        string `json:"role"`
	Instruction string `json:"instruction"`
	Output      string `json:"output"`
}

// ConversationContext carries completed task outputs from one task to the next.
type ConversationContext struct {
	outputs []TaskOutput
}

func (c *ConversationContext) Append(out TaskOutput) {
	c.outputs = append(c.outputs, out)
}

func (c *ConversationContext) Outputs() []TaskOutput {
	if c == nil {
		return nil
	}
	return slices.Clone(c.outputs)
}

func (c *ConversationContext) Last() (TaskOutput, bool) {
	if c == nil || len(c.outputs) == 0 {
		return TaskOutput{}, false
	}
	return c.outputs[len(c.outputs)-1], true
}

type TaskRequest struct {
	Task        TaskSpec
	Instruction string
	Context     *ConversationContext
}

type PlannerRequest struct {
	Tasks []PlannedTask `json:"tasks"`
}

type PlannedTask struct {
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	Instruction string   `json:"instruction"`
	Tools       []string `json:"tools,omitempty"`
}

type PlannerResponse struct {
	Plans map[string]string
}
