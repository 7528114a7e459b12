package fieldledger

import (
	"sort"
	"strings"

	"github.com/yungbote/tripseal-backend/internal/domain/audit"
	"github.com/yungbote/tripseal-backend/internal/domain/trip"
)

// ResolvedDetails is the effective trip detail set with the source of each value.
type ResolvedDetails struct {
	Details trip.TripDetails
	Sources map[string]string
}

// ResolveDetails fills empty columns from the most recent activity log
// tripDetails payload carrying a non-empty value.
func ResolveDetails(session *trip.Session, logs []*audit.ActivityLog) ResolvedDetails {
	out := ResolvedDetails{Sources: map[string]string{}}
	if session == nil {
		return out
	}
	out.Details = session.TripDetails
	parsed := parseLogs(logs)
	chain := Chain[string]{
		{Name: SourceColumn, Lookup: func(f trip.FieldSpec) (string, bool) {
			v := f.Get(&session.TripDetails)
			return v, v != ""
		}},
		{Name: SourceActivityLog, Lookup: func(f trip.FieldSpec) (string, bool) {
			for _, l := range parsed {
				if v, ok := l.payload.TripValue(f); ok {
					return v, true
				}
			}
			return "", false
		}},
	}
	for _, f := range trip.DetailFieldSpecs() {
		v, src, ok := chain.Resolve(f)
		if !ok {
			continue
		}
		if src != SourceColumn {
			// Legacy payloads may hold values the column type rejects; keep the column then.
			if err := f.Set(&out.Details, v); err != nil {
				continue
			}
		}
		out.Sources[f.Key()] = src
	}
	return out
}

// ResolveImages returns the newest reference (or list) per images.* field.
func ResolveImages(logs []*audit.ActivityLog) map[string]any {
	parsed := parseLogs(logs)
	out := map[string]any{}
	for _, f := range trip.FieldSpecs() {
		if !f.IsImage() {
			continue
		}
		for _, l := range parsed {
			if v, ok := l.payload.ImageValue(f); ok {
				out[f.Name] = v
				break
			}
		}
	}
	return out
}

// ChangedFields returns, sorted, the keys of after whose trimmed value differs from before.
func ChangedFields(before, after map[string]string) []string {
	var out []string
	for k, v := range after {
		if strings.TrimSpace(v) != strings.TrimSpace(before[k]) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
