package logpayload

import (
	"time"

	"github.com/yungbote/tripseal-backend/internal/domain/trip"
)

type SealTagImage struct {
	Data        string `json:"data"`
	ContentType string `json:"contentType"`
}

type SealTagData struct {
	IDs        []string
	Methods    map[string]string
	Timestamps map[string]time.Time
}

// Timestamps renders per-field write times as a flat, dot-keyed object.
func Timestamps(fields []string, at time.Time) map[string]any {
	out := make(map[string]any, len(fields))
	ts := at.UTC().Format(time.RFC3339Nano)
	for _, f := range fields {
		out[f] = ts
	}
	return out
}

// TripDetailsEntry is the snapshot written on session creation and on every trip detail edit.
func TripDetailsEntry(sessionID string, details map[string]any, timestamps map[string]any, qrCodes map[string]any, sealTags *SealTagData) Payload {
	p := Payload{
		"sessionId":    sessionID,
		KeyTripDetails: details,
		KeyTimestamps:  timestamps,
	}
	if len(qrCodes) > 0 {
		p[KeyQRCodes] = qrCodes
	}
	if sealTags != nil {
		p[KeySealTagData] = sealTags.toMap()
	}
	return p
}

// ImagesEntry is the image snapshot written alongside a trip details entry.
func ImagesEntry(sessionID string, images map[string]any, sealTagImages map[string]SealTagImage) Payload {
	p := Payload{
		"sessionId": sessionID,
		KeyImages:   images,
	}
	if len(sealTagImages) > 0 {
		p[KeyImageBase64Data] = map[string]any{KeySealTagImages: sealTagImageMap(sealTagImages)}
	}
	return p
}

// GuardScanEntry records one guard scan.
func GuardScanEntry(sessionID, barcode, method, outcome string, at time.Time, inline *SealTagImage) Payload {
	p := Payload{
		"sessionId": sessionID,
		"barcode":   barcode,
		"method":    method,
		"outcome":   outcome,
		"timestamp": at.UTC().Format(time.RFC3339Nano),
	}
	if inline != nil && inline.Data != "" {
		p[KeyGuardImageBase64Data] = map[string]any{
			KeySealTagImages: sealTagImageMap(map[string]SealTagImage{barcode: *inline}),
		}
	}
	return p
}

// VerificationEntry records verification completion.
func VerificationEntry(sessionID string, verification map[string]any, matched, mismatched, missing []string, at time.Time) Payload {
	v := map[string]any{}
	for k, val := range verification {
		v[k] = val
	}
	v["completedAt"] = at.UTC().Format(time.RFC3339Nano)
	v["matchedSeals"] = nonNil(matched)
	v["mismatchedSeals"] = nonNil(mismatched)
	v["missingSeals"] = nonNil(missing)
	return Payload{
		"sessionId":     sessionID,
		KeyVerification: v,
	}
}

// SealTagImages returns the inline seal tag images keyed by barcode, reading
// either imageBase64Data or guardImageBase64Data.
func (p Payload) SealTagImages(guard bool) map[string]SealTagImage {
	key := KeyImageBase64Data
	if guard {
		key = KeyGuardImageBase64Data
	}
	out := map[string]SealTagImage{}
	images, _ := p.Object(key)[KeySealTagImages].(map[string]any)
	for barcode, raw := range images {
		obj, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		img := SealTagImage{Data: Stringify(obj["data"]), ContentType: Stringify(obj["contentType"])}
		if img.Data != "" {
			out[barcode] = img
		}
	}
	return out
}

func (d *SealTagData) toMap() map[string]any {
	methods := map[string]any{}
	for k, v := range d.Methods {
		methods[k] = v
	}
	stamps := map[string]any{}
	for k, v := range d.Timestamps {
		stamps[k] = v.UTC().Format(time.RFC3339Nano)
	}
	return map[string]any{
		KeySealTagIDs:        nonNil(d.IDs),
		KeySealTagMethods:    methods,
		KeySealTagTimestamps: stamps,
	}
}

func sealTagImageMap(in map[string]SealTagImage) map[string]any {
	out := make(map[string]any, len(in))
	for barcode, img := range in {
		out[barcode] = map[string]any{"data": img.Data, "contentType": img.ContentType}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// ImageFieldKeys lists the images.* keys in canonical order.
func ImageFieldKeys() []string {
	var out []string
	for _, f := range trip.FieldSpecs() {
		if f.IsImage() {
			out = append(out, f.Name)
		}
	}
	return out
}
