package crewnode

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/hotel-finder/agent/contract"
)

type GraphInput struct {
	Request contractx.RenderedRequest
}

type GraphOutput struct {
	Result string
}

type GraphState struct {
	Request contractx.RenderedRequest
	Now     time.Time

	Instructions map[string]string
	Plans        map[string]string
	Context      *contractx.ConversationContext
	Last         contractx.TaskOutput
}

func ValidateRun(in GraphInput, creds *contractx.Credentials, nowFn func() time.Time) (*GraphState, error) {
	if !creds.HasBrowserbase() {
		return nil, contractx.NewPipelineError(contractx.StageValidate, contractx.ErrMissingCredential)
	}

	text := strings.TrimSpace(in.Request.Text)
	if text == "" {
		return nil, contractx.NewPipelineError(contractx.StageValidate,
			fmt.Errorf("%w: rendered request is empty", contractx.ErrValidation))
	}
	if in.Request.CurrentYear <= 0 {
		return nil, contractx.NewPipelineError(contractx.StageValidate,
			fmt.Errorf("%w: current year=%d", contractx.ErrValidation, in.Request.CurrentYear))
	}

	return &GraphState{
		Request: contractx.RenderedRequest{Text: text, CurrentYear: in.Request.CurrentYear},
		Now:     nowFn().UTC(),
		Context: &contractx.ConversationContext{},
	}, nil
}
