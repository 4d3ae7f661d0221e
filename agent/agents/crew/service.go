package crew

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	plannerx "github.com/tanpawarit/hotel-finder/agent/agents/planner"
	rolex "github.com/tanpawarit/hotel-finder/agent/agents/role"
	contractx "github.com/tanpawarit/hotel-finder/agent/contract"
	llmx "github.com/tanpawarit/hotel-finder/agent/llm"
	nodex "github.com/tanpawarit/hotel-finder/agent/nodes/crew"
	promptx "github.com/tanpawarit/hotel-finder/agent/prompt"
	throttlex "github.com/tanpawarit/hotel-finder/agent/throttle"
)

// Config is read with the CREW prefix. RunTimeout must cover RunBudget: at
// MaxRPM=1 a run with planning and two tasks that both reach the iteration
// cap makes 1+2*(MaxIterations+1) model calls, 33 with the defaults, which
// take 32 minutes. A RunTimeout of 0 disables the deadline.
type Config struct {
	MaxRPM        int           `envconfig:"MAX_RPM" split_words:"true" default:"1"`
	Planning      bool          `envconfig:"PLANNING" split_words:"true" default:"true"`
	MaxIterations int           `envconfig:"MAX_ITERATIONS" split_words:"true" default:"15"`
	RunTimeout    time.Duration `envconfig:"RUN_TIMEOUT" split_words:"true" default:"40m"`
}

// RunBudget is the time the rate ceiling needs for the largest run over
// tasks: the planner call plus every task reaching its iteration cap and
// the forced final answer. The first call is admitted at once.
func (c Config) RunBudget(tasks int) time.Duration {
	if c.MaxRPM <= 0 {
		return 0
	}
	maxIterations := c.MaxIterations
	if maxIterations <= 0 {
		maxIterations = rolex.DefaultMaxIterations
	}

	calls := tasks * (maxIterations + 1)
	if c.Planning {
		calls++
	}
	if calls <= 1 {
		return 0
	}
	return time.Duration(calls-1) * time.Minute / time.Duration(c.MaxRPM)
}

type Option func(*Crew)

// WithThrottle replaces the rate ceiling built from Config.MaxRPM.
func WithThrottle(t contractx.Throttle) Option {
	return func(c *Crew) {
		if t != nil {
			c.throttle = t
		}
	}
}

func WithDefinition(def promptx.CrewDefinition) Option {
	return func(c *Crew) {
		c.def = def
	}
}

// Crew is the pipeline orchestrator. It runs the planning pre-pass and then
// every task in order on its role, all on one model handle and under one
// rate ceiling.
type Crew struct {
	creds    *contractx.Credentials
	def      promptx.CrewDefinition
	agents   map[string]contractx.Executor
	planner  contractx.Planner
	throttle contractx.Throttle

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	runTimeout time.Duration
	now        func() time.Time
}

func New(
	ctx context.Context,
	handle *llmx.Handle,
	provider contractx.CapabilityProvider,
	creds *contractx.Credentials,
	cfg Config,
	opts ...Option,
) (*Crew, error) {
	if handle == nil || handle.Model() == nil {
		return nil, errors.New("llm handle is required")
	}
	if provider == nil {
		return nil, errors.New("capability provider is required")
	}
	if creds == nil {
		return nil, errors.New("credentials are required")
	}

	c := &Crew{
		creds:      creds,
		throttle:   throttlex.PerMinute(cfg.MaxRPM),
		runTimeout: cfg.RunTimeout,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if len(c.def.Tasks) == 0 {
		def, err := promptx.LoadCrew()
		if err != nil {
			return nil, err
		}
		c.def = def
	}

	if budget := cfg.RunBudget(len(c.def.Tasks)); cfg.RunTimeout > 0 && cfg.RunTimeout < budget {
		return nil, fmt.Errorf("%w: run timeout %s is shorter than the %s the rate ceiling needs for %d tasks",
			contractx.ErrValidation, cfg.RunTimeout, budget, len(c.def.Tasks))
	}

	prompts := promptx.LoadPromptSet()
	chatModel := handle.Model()

	c.agents = make(map[string]contractx.Executor, len(c.def.Roles))
	for _, role := range c.def.Roles {
		agent, err := rolex.New(ctx, role, chatModel, provider, c.throttle, prompts, rolex.Config{
			MaxIterations: cfg.MaxIterations,
		})
		if err != nil {
			return nil, err
		}
		c.agents[role.Name] = agent
	}

	if cfg.Planning {
		planner, err := plannerx.New(ctx, chatModel, c.throttle, prompts.Planner)
		if err != nil {
			return nil, err
		}
		c.planner = planner
	}

	graphRunner, err := c.compileRunGraph(ctx)
	if err != nil {
		return nil, err
	}
	c.graphRunner = graphRunner

	return c, nil
}

// Roles returns the roles the crew was built with, in definition order.
func (c *Crew) Roles() []contractx.RoleRef {
	return append([]contractx.RoleRef(nil), c.def.Roles...)
}

// Run blocks until the final task answers or the run fails. Every failure is
// returned as a *contractx.PipelineError.
func (c *Crew) Run(ctx context.Context, req contractx.RenderedRequest) (result string, err error) {
	runID := uuid.New().String()
	logger := log.With().Str("run_id", runID).Logger()
	ctx = logger.WithContext(ctx)

	if c.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.runTimeout)
		defer cancel()
	}

	startedAt := c.now()
	defer func() {
		if r := recover(); r != nil {
			result, err = "", contractx.NewPipelineError(contractx.StageOrchestrate, fmt.Errorf("panic: %v", r))
		}
		logRunEnd(logger, c.now().Sub(startedAt), err)
	}()

	logger.Info().Str("request", req.Text).Int("current_year", req.CurrentYear).Msg("crew run started")

	out, err := c.graphRunner.Invoke(ctx, nodex.GraphInput{Request: req})
	if err != nil {
		var pe *contractx.PipelineError
		if errors.As(err, &pe) {
			return "", pe
		}
		return "", contractx.NewPipelineError(contractx.StageOrchestrate, err)
	}
	return out.Result, nil
}

func logRunEnd(logger zerolog.Logger, elapsed time.Duration, err error) {
	if err != nil {
		logger.Error().Err(err).Dur("elapsed", elapsed).Msg("crew run failed")
		return
	}
	logger.Info().Dur("elapsed", elapsed).Msg("crew run finished")
}
