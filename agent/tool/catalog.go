package tool

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/hotel-finder/agent/contract"
)

// Tool names go on the wire as function names, which only allow
// [a-zA-Z0-9_-].
const (
	ToolHotelsSearch = "hotels_search"
	ToolBrowserFetch = "browser_fetch"
)

var toolCapabilities = map[string]contractx.Capability{
	ToolHotelsSearch: contractx.CapabilitySearch,
	ToolBrowserFetch: contractx.CapabilityBrowse,
}

// CapabilityFor returns the capability a tool name requires.
func CapabilityFor(tool string) (contractx.Capability, bool) {
	c, ok := toolCapabilities[tool]
	return c, ok
}

type Executor func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error)

// BuildForRole returns the tool schema bound to the role's model and the
// executor that serves those tools. A role with no capabilities gets no tools.
func BuildForRole(role contractx.RoleRef, provider contractx.CapabilityProvider) ([]*schema.ToolInfo, Executor) {
	return InfosFor(role.Capabilities), NewExecutor(role, provider)
}

func NewExecutor(role contractx.RoleRef, provider contractx.CapabilityProvider) Executor {
	fallback := DefaultExecutor(role.Name)
	return func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error) {
		capability, known := CapabilityFor(tool)
		if !known || !role.Capabilities.Has(capability) || provider == nil {
			return fallback(ctx, tool, args)
		}
		switch tool {
		case ToolHotelsSearch:
			return executeHotelsSearch(ctx, provider, tool, args)
		case ToolBrowserFetch:
			return executeBrowserFetch(ctx, provider, tool, args)
		default:
			return fallback(ctx, tool, args)
		}
	}
}

func DefaultExecutor(roleName string) Executor {
	return func(ctx context.Context, tool string, _ map[string]any) (contractx.ToolResult, error) {
		return contractx.ToolResult{
			Tool:  tool,
			Error: fmt.Sprintf("tool=%s is unavailable for role=%s", tool, roleName),
		}, nil
	}
}

func InfosFor(caps contractx.CapabilitySet) []*schema.ToolInfo {
	var infos []*schema.ToolInfo
	if caps.Has(contractx.CapabilitySearch) {
		infos = append(infos, &schema.ToolInfo{
			Name: ToolHotelsSearch,
			Desc: "Build a Kayak hotel search URL for a location, date range and party. Load the URL with browser_fetch to read the results.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"location":       {Type: schema.String, Desc: "City, area or landmark", Required: true},
				"check_in_date":  {Type: schema.String, Desc: "Check-in date in YYYY-MM-DD format", Required: true},
				"check_out_date": {Type: schema.String, Desc: "Check-out date in YYYY-MM-DD format", Required: true},
				"num_adults":     {Type: schema.Integer, Desc: "Number of adults, default 2"},
				"num_rooms":      {Type: schema.Integer, Desc: "Number of rooms, default 1"},
			}),
		})
	}
	if caps.Has(contractx.CapabilityBrowse) {
		infos = append(infos, &schema.ToolInfo{
			Name: ToolBrowserFetch,
			Desc: "Load a web page in a managed headless browser and return its visible text.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"url": {Type: schema.String, Desc: "Absolute http(s) URL to load", Required: true},
			}),
		})
	}
	return infos
}

func executeHotelsSearch(ctx context.Context, provider contractx.CapabilityProvider, tool string, args map[string]any) (contractx.ToolResult, error) {
	q, err := hotelQueryFromArgs(args)
	if err != nil {
		return contractx.ToolResult{Tool: tool, Error: err.Error()}, nil
	}

	out, err := provider.SearchHotels(ctx, q)
	if err != nil {
		if errors.Is(err, errInvalidQuery) {
			return contractx.ToolResult{Tool: tool, Error: err.Error()}, nil
		}
		return contractx.ToolResult{}, fmt.Errorf("%w: tool=%s: %v", contractx.ErrToolInvoke, tool, err)
	}
	return contractx.ToolResult{Tool: tool, Result: out}, nil
}

func executeBrowserFetch(ctx context.Context, provider contractx.CapabilityProvider, tool string, args map[string]any) (contractx.ToolResult, error) {
	pageURL, err := pageURLArg(args, "url")
	if err != nil {
		return contractx.ToolResult{Tool: tool, Error: err.Error()}, nil
	}

	text, err := provider.FetchPage(ctx, pageURL)
	if err != nil {
		if errors.Is(err, errPageUnavailable) {
			return contractx.ToolResult{Tool: tool, Error: err.Error()}, nil
		}
		return contractx.ToolResult{}, fmt.Errorf("%w: tool=%s: %v", contractx.ErrToolInvoke, tool, err)
	}
	return contractx.ToolResult{Tool: tool, Result: text}, nil
}
