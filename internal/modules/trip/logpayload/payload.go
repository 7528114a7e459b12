// Package logpayload reads and writes the JSON details carried by activity log
// entries. Key names are stable: historical rows are read with the same keys.
package logpayload

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/tripseal-backend/internal/domain/trip"
)

const (
	KeyTripDetails          = "tripDetails"
	KeyImages               = "images"
	KeyTimestamps           = "timestamps"
	KeyQRCodes              = "qrCodes"
	KeyVerification         = "verification"
	KeyImageBase64Data      = "imageBase64Data"
	KeyGuardImageBase64Data = "guardImageBase64Data"
	KeySealTagImages        = "sealTagImages"
	KeySealTagData          = "sealTagData"
	KeySealTagIDs           = "sealTagIds"
	KeySealTagMethods       = "sealTagMethods"
	KeySealTagTimestamps    = "sealTagTimestamps"
)

// Payload is a decoded activity log details object.
type Payload map[string]any

// Parse decodes raw details. Malformed or non-object JSON yields an empty payload.
func Parse(raw []byte) Payload {
	if len(raw) == 0 {
		return Payload{}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return Payload{}
	}
	return Payload(out)
}

func (p Payload) Encode() ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]any(p))
}

func (p Payload) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Object returns p[key] when it is a JSON object.
func (p Payload) Object(key string) map[string]any {
	m, _ := p[key].(map[string]any)
	return m
}

// lookupNested finds a field under an object that may be keyed flat
// ("loadingDetails.driverName"), nested by section, or by bare name.
func lookupNested(obj map[string]any, f trip.FieldSpec) (any, bool) {
	if obj == nil {
		return nil, false
	}
	if v, ok := obj[f.Key()]; ok {
		return v, true
	}
	if section, ok := obj[f.Section].(map[string]any); ok {
		if v, ok := section[f.Name]; ok {
			return v, true
		}
	}
	for _, s := range trip.Sections {
		if s == f.Section {
			continue
		}
		if v, ok := obj[s+"."+f.Name]; ok {
			return v, true
		}
		if section, ok := obj[s].(map[string]any); ok {
			if v, ok := section[f.Name]; ok {
				return v, true
			}
		}
	}
	if v, ok := obj[f.Name]; ok {
		return v, true
	}
	return nil, false
}

// TripValue returns the string-normalized tripDetails value for f. Empty values report false.
func (p Payload) TripValue(f trip.FieldSpec) (string, bool) {
	v, ok := lookupNested(p.Object(KeyTripDetails), f)
	if !ok {
		return "", false
	}
	s := Stringify(v)
	return s, s != ""
}

// ImageValue returns the images entry for f: a reference string or a list of them.
func (p Payload) ImageValue(f trip.FieldSpec) (any, bool) {
	v, ok := lookupNested(p.Object(KeyImages), f)
	if !ok || v == nil {
		return nil, false
	}
	switch t := v.(type) {
	case string:
		return t, strings.TrimSpace(t) != ""
	case []any:
		return t, len(t) > 0
	default:
		return nil, false
	}
}

// Timestamp returns the legacy timestamp recorded for f, if any.
func (p Payload) Timestamp(f trip.FieldSpec) (time.Time, bool) {
	v, ok := lookupNested(p.Object(KeyTimestamps), f)
	if !ok {
		return time.Time{}, false
	}
	return ParseTime(v)
}

// ParseTime accepts RFC3339 strings, "2006-01-02 15:04:05" strings, and epoch
// milliseconds as a number or numeric string.
func ParseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.000Z0700", "2006-01-02 15:04:05"} {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.UTC(), true
			}
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC(), true
		}
		return time.Time{}, false
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(t)).UTC(), true
	case json.Number:
		ms, err := t.Int64()
		if err != nil {
			return time.Time{}, false
		}
		return time.UnixMilli(ms).UTC(), true
	default:
		return time.Time{}, false
	}
}

// Stringify renders a decoded JSON scalar as the comparison string used for trip fields.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return trip.FormatFloat(t)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}
