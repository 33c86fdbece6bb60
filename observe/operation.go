package observe

import "strings"

// Operation kinds.
const (
	KindQuery    = "query"
	KindMutation = "mutation"
	KindRequest  = "request"
)

// OperationMeta describes one observed operation.
type OperationMeta struct {
	Kind   string // query, mutation or request
	Method string // HTTP method, upper case
	Path   string // route path, e.g. /users/:id
	Key    string // query key hash (optional)
}

// SpanName returns the deterministic span name for the operation.
// Format: rpcquery.<kind>.<METHOD> <path>
func (m OperationMeta) SpanName() string {
	kind := m.Kind
	if kind == "" {
		kind = KindRequest
	}
	return "rpcquery." + kind + "." + strings.ToUpper(m.Method) + " " + m.Path
}

// Route returns "<METHOD> <path>".
func (m OperationMeta) Route() string {
	return strings.ToUpper(m.Method) + " " + m.Path
}
