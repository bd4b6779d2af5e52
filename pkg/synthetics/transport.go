package synthetics

import "context"

// API operation names understood by Transport implementations.
const (
	OpAgentsList         = "AgentsList"
	OpAgentGet           = "AgentGet"
	OpAgentUpdate        = "AgentUpdate"
	OpAgentPatch         = "AgentPatch"
	OpAgentDelete        = "AgentDelete"
	OpTestsList          = "TestsList"
	OpTestGet            = "TestGet"
	OpTestCreate         = "TestCreate"
	OpTestUpdate         = "TestUpdate"
	OpTestPatch          = "TestPatch"
	OpTestDelete         = "TestDelete"
	OpTestStatusUpdate   = "TestStatusUpdate"
	OpGetHealthForTests  = "GetHealthForTests"
	OpGetResultsForTests = "GetResultsForTests"
	OpGetTraceForTest    = "GetTraceForTest"
)

// Request carries the variable parts of an API operation.
type Request struct {
	ID     string            // path parameter, required by per-resource ops
	Params map[string]string // query parameters
	Body   map[string]any    // JSON request body
}

// Transport executes named operations against the synthetics API and
// returns the decoded payload of the response envelope.
type Transport interface {
	Req(ctx context.Context, op string, req Request) (any, error)
}
