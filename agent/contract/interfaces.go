package contract

import "context"

// CapabilityProvider is the external service behind the role tools.
type CapabilityProvider interface {
	SearchHotels(ctx context.Context, q HotelQuery) (string, error)
	FetchPage(ctx context.Context, pageURL string) (string, error)
}

// Throttle admits one unit of work at a time under the crew's rate ceiling.
type Throttle interface {
	Wait(ctx context.Context) error
}

type Planner interface {
	Plan(ctx context.Context, req PlannerRequest) (PlannerResponse, error)
}

// Executor runs a single task on behalf of one role.
type Executor interface {
	Role() RoleRef
	Execute(ctx context.Context, req TaskRequest) (TaskOutput, error)
}
