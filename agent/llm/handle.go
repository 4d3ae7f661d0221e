package llm

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/hotel-finder/agent/contract"
	groqx "github.com/tanpawarit/hotel-finder/pkg/groq"
)

// Handle is the process-wide model connection. Build it once and pass it by
// reference to the crew; the planner and every role use the same model.
type Handle struct {
	name  string
	model einomodel.ToolCallingChatModel
}

func NewHandle(ctx context.Context, cfg Config) (*Handle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	provider := cfg.Provider()
	if cfg.Probe {
		if err := groqx.Probe(ctx, groqx.NewClient(provider), provider.Model); err != nil {
			return nil, fmt.Errorf("%w: probe model: %v", contractx.ErrModelInvoke, err)
		}
	}

	m, err := provider.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create model: %v", contractx.ErrModelInvoke, err)
	}

	log.Info().Str("model", provider.Model).Str("base_url", provider.BaseURL).Msg("llm handle ready")
	return &Handle{name: provider.Model, model: m}, nil
}

// NewHandleFromModel wraps an already constructed chat model.
func NewHandleFromModel(name string, m einomodel.ToolCallingChatModel) *Handle {
	return &Handle{name: name, model: m}
}

func (h *Handle) Name() string {
	return h.name
}

func (h *Handle) Model() einomodel.ToolCallingChatModel {
	return h.model
}
