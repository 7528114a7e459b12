package ctxutil

import "context"

type traceDataKey struct{}

// TraceData correlates one API call across logs, spans and the response.
// ResourceID is the :id route parameter when the route has one (a session,
// seal tag or user), so every log line for a trip can be grepped by its id.
type TraceData struct {
	TraceID    string
	RequestID  string
	ResourceID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(Default(ctx), traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	if td, ok := ctx.Value(traceDataKey{}).(*TraceData); ok {
		return td
	}
	return nil
}

// LogFields returns the non-empty ids as logger key/value pairs.
func (td *TraceData) LogFields() []interface{} {
	if td == nil {
		return nil
	}
	var out []interface{}
	if td.TraceID != "" {
		out = append(out, "trace_id", td.TraceID)
	}
	if td.RequestID != "" {
		out = append(out, "request_id", td.RequestID)
	}
	if td.ResourceID != "" {
		out = append(out, "resource_id", td.ResourceID)
	}
	return out
}
