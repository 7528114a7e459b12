package aggregates

import (
	"strings"
	"time"

	"github.com/yungbote/tripseal-backend/internal/observability"
	"github.com/yungbote/tripseal-backend/internal/platform/logger"
)

// Hooks receives one event per trip aggregate write, named like
// Trip.Session.Create or Coins.Allocate.
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	IncConflict(name string)
	IncRetry(name string)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncRetry(string)                                {}

const maxOperationLabel = 64

// operationLabel keeps metric label cardinality bounded: anything outside
// [A-Za-z0-9._] becomes '_' and long names are cut.
func operationLabel(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range name {
		if b.Len() >= maxOperationLabel {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

type observabilityHooks struct {
	metrics *observability.Metrics
	log     *logger.Logger
}

// NewObservabilityHooks records aggregate writes as prometheus metrics. Seal
// tag and coin conflicts are also logged at debug so a rejected scan can be
// traced back to its operation.
func NewObservabilityHooks(metrics *observability.Metrics, log *logger.Logger) Hooks {
	if metrics == nil {
		return noopHooks{}
	}
	h := &observabilityHooks{metrics: metrics}
	if log != nil {
		h.log = log.With("component", "AggregateHooks")
	}
	return h
}

func (h *observabilityHooks) ObserveOperation(name, status string, dur time.Duration) {
	if h == nil || h.metrics == nil {
		return
	}
	h.metrics.ObserveAggregateOperation(operationLabel(name), strings.TrimSpace(status), dur)
}

func (h *observabilityHooks) IncConflict(name string) {
	if h == nil || h.metrics == nil {
		return
	}
	op := operationLabel(name)
	h.metrics.IncAggregateConflict(op)
	if h.log != nil {
		h.log.Debug("Aggregate write conflict", "operation", op)
	}
}

func (h *observabilityHooks) IncRetry(name string) {
	if h == nil || h.metrics == nil {
		return
	}
	h.metrics.IncAggregateRetry(operationLabel(name))
}
