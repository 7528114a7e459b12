package fieldledger

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/tripseal-backend/internal/domain/audit"
	"github.com/yungbote/tripseal-backend/internal/domain/trip"
	"github.com/yungbote/tripseal-backend/internal/modules/trip/logpayload"
)

const (
	SourceLedger         = "ledger"
	SourceActivityLog    = "activity_log"
	SourceSessionCreated = "session_created"
	SourceColumn         = "column"
)

// Provenance is the resolved "last set" record for one field.
type Provenance struct {
	Field       string     `json:"field"`
	Timestamp   time.Time  `json:"timestamp"`
	UpdatedByID *uuid.UUID `json:"updated_by_id,omitempty"`
	Source      string     `json:"source"`
	// Replaced is true when a sentinel date was swapped for the session creation time.
	Replaced bool `json:"replaced,omitempty"`
}

// Inputs is everything resolution reads. Logs must be ordered newest first.
type Inputs struct {
	Session *trip.Session
	Ledger  []*trip.FieldTimestamp
	Logs    []*audit.ActivityLog
}

type Resolver struct {
	poisoned map[string]struct{}
}

// NewResolver builds a resolver treating the given YYYY-MM-DD dates as poisoned.
func NewResolver(poisonedDates []string) (*Resolver, error) {
	r := &Resolver{poisoned: map[string]struct{}{}}
	for _, d := range poisonedDates {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		ts, err := time.Parse("2006-01-02", d)
		if err != nil {
			return nil, fmt.Errorf("invalid poisoned date %q: %w", d, err)
		}
		r.poisoned[ts.Format("2006-01-02")] = struct{}{}
	}
	return r, nil
}

// IsSentinel reports whether ts is a placeholder rather than a real write time.
func (r *Resolver) IsSentinel(ts time.Time) bool {
	if ts.IsZero() || ts.Unix() <= 86400 {
		return true
	}
	if r == nil {
		return false
	}
	_, bad := r.poisoned[ts.UTC().Format("2006-01-02")]
	return bad
}

type ledgerHit struct {
	at time.Time
	by uuid.UUID
}

// Resolve returns the provenance of one field: ledger, then the most recent
// activity log carrying a timestamp for it, then session creation time.
func (r *Resolver) Resolve(in Inputs, fieldName string) Provenance {
	f, ok := trip.LookupField(fieldName)
	if !ok {
		return r.fallback(in, strings.TrimSpace(fieldName))
	}
	return r.resolveSpec(in, indexLedger(in.Ledger), parseLogs(in.Logs), f)
}

// ResolveAll resolves every canonical field.
func (r *Resolver) ResolveAll(in Inputs) []Provenance {
	ledger := indexLedger(in.Ledger)
	logs := parseLogs(in.Logs)
	specs := trip.FieldSpecs()
	out := make([]Provenance, 0, len(specs))
	for _, f := range specs {
		out = append(out, r.resolveSpec(in, ledger, logs, f))
	}
	return out
}

func (r *Resolver) resolveSpec(in Inputs, ledger map[string]*trip.FieldTimestamp, logs []parsedLog, f trip.FieldSpec) Provenance {
	chain := Chain[ledgerHit]{
		{Name: SourceLedger, Lookup: func(f trip.FieldSpec) (ledgerHit, bool) {
			row := lookupLedger(ledger, f)
			if row == nil {
				return ledgerHit{}, false
			}
			return ledgerHit{at: row.UpdatedAt, by: row.UpdatedByID}, true
		}},
		{Name: SourceActivityLog, Lookup: func(f trip.FieldSpec) (ledgerHit, bool) {
			for _, l := range logs {
				if ts, ok := l.payload.Timestamp(f); ok {
					return ledgerHit{at: ts, by: l.userID}, true
				}
			}
			return ledgerHit{}, false
		}},
	}
	hit, src, ok := chain.Resolve(f)
	if !ok {
		return r.fallback(in, f.Key())
	}
	p := Provenance{Field: f.Key(), Timestamp: hit.at.UTC(), Source: src}
	if hit.by != uuid.Nil {
		by := hit.by
		p.UpdatedByID = &by
	}
	if r.IsSentinel(p.Timestamp) {
		fb := r.fallback(in, f.Key())
		fb.Replaced = true
		fb.UpdatedByID = p.UpdatedByID
		return fb
	}
	return p
}

func (r *Resolver) fallback(in Inputs, field string) Provenance {
	p := Provenance{Field: field, Source: SourceSessionCreated}
	if in.Session != nil {
		p.Timestamp = in.Session.CreatedAt.UTC()
		creator := in.Session.CreatedByID
		if creator != uuid.Nil {
			p.UpdatedByID = &creator
		}
	}
	return p
}

// ledgerVariants lists the names a field may have been recorded under, canonical first.
func ledgerVariants(f trip.FieldSpec) []string {
	out := []string{f.Key()}
	for _, s := range trip.Sections {
		if s != f.Section {
			out = append(out, s+"."+f.Name)
		}
	}
	return append(out, f.Name)
}

func indexLedger(rows []*trip.FieldTimestamp) map[string]*trip.FieldTimestamp {
	out := make(map[string]*trip.FieldTimestamp, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		name := strings.TrimSpace(row.FieldName)
		if prev, ok := out[name]; ok && prev.UpdatedAt.After(row.UpdatedAt) {
			continue
		}
		out[name] = row
	}
	return out
}

// lookupLedger prefers the canonical name, then the newest of the variants.
func lookupLedger(ledger map[string]*trip.FieldTimestamp, f trip.FieldSpec) *trip.FieldTimestamp {
	variants := ledgerVariants(f)
	if row, ok := ledger[variants[0]]; ok {
		return row
	}
	var best *trip.FieldTimestamp
	for _, name := range variants[1:] {
		if row, ok := ledger[name]; ok && (best == nil || row.UpdatedAt.After(best.UpdatedAt)) {
			best = row
		}
	}
	return best
}

type parsedLog struct {
	userID    uuid.UUID
	createdAt time.Time
	payload   logpayload.Payload
}

func parseLogs(logs []*audit.ActivityLog) []parsedLog {
	out := make([]parsedLog, 0, len(logs))
	for _, l := range logs {
		if l == nil {
			continue
		}
		p := logpayload.Parse(l.Details)
		if len(p) == 0 {
			continue
		}
		out = append(out, parsedLog{userID: l.UserID, createdAt: l.CreatedAt, payload: p})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].createdAt.After(out[j].createdAt) })
	return out
}
