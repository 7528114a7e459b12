// Package sealcheck reconciles operator-applied seals with guard scans.
package sealcheck

import (
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/tripseal-backend/internal/domain/trip"
)

type Source string

const (
	SourceGuardSealTag Source = "guard_seal_tag"
	SourceSealTag      Source = "seal_tag"
	SourceLegacy       Source = "legacy"
)

// GuardScanRecord is a guard's scan of one barcode, whichever table or payload it came from.
type GuardScanRecord struct {
	Barcode      string     `json:"barcode"`
	Key          string     `json:"-"`
	Method       string     `json:"method,omitempty"`
	Status       string     `json:"status,omitempty"`
	ImageRef     string     `json:"image_ref,omitempty"`
	VerifiedByID *uuid.UUID `json:"verified_by_id,omitempty"`
	ScannedAt    *time.Time `json:"scanned_at,omitempty"`
	Verified     bool       `json:"verified"`
	Source       Source     `json:"source"`
}

// OperatorSeal is a seal the operator registered at session creation.
type OperatorSeal struct {
	Barcode  string    `json:"barcode"`
	Key      string    `json:"-"`
	Method   string    `json:"method"`
	ImageRef string    `json:"image_ref,omitempty"`
	At       time.Time `json:"created_at"`
}

func FromGuardSealTag(g *trip.GuardSealTag) GuardScanRecord {
	by := g.VerifiedByID
	at := g.CreatedAt
	return GuardScanRecord{
		Barcode:      g.Barcode,
		Key:          trip.NormalizeBarcode(g.Barcode),
		Method:       g.Method,
		Status:       g.Status,
		ImageRef:     g.ImageRef,
		VerifiedByID: &by,
		ScannedAt:    &at,
		Verified:     true,
		Source:       SourceGuardSealTag,
	}
}

// FromSealTagGuard maps the guard fields of a seal tag. It reports false when
// no guard has scanned the tag.
func FromSealTagGuard(t *trip.SealTag) (GuardScanRecord, bool) {
	if t == nil || !t.GuardVerified() {
		return GuardScanRecord{}, false
	}
	return GuardScanRecord{
		Barcode:      t.Barcode,
		Key:          trip.NormalizeBarcode(t.Barcode),
		Method:       t.GuardMethod,
		Status:       t.GuardStatus,
		ImageRef:     t.GuardImageRef,
		VerifiedByID: t.GuardUserID,
		ScannedAt:    t.GuardTimestamp,
		Verified:     true,
		Source:       SourceSealTag,
	}, true
}

// OperatorSeals returns the operator-registered tags, skipping guard-only rows.
func OperatorSeals(tags []*trip.SealTag) []OperatorSeal {
	out := make([]OperatorSeal, 0, len(tags))
	for _, t := range tags {
		if t == nil || !t.IsOperatorTag() {
			continue
		}
		out = append(out, OperatorSeal{
			Barcode:  t.Barcode,
			Key:      trip.NormalizeBarcode(t.Barcode),
			Method:   t.Method,
			ImageRef: t.ImageRef,
			At:       t.CreatedAt,
		})
	}
	return out
}

// MergeGuardRecords unions guard scan rows with seal tag guard fields. A
// GuardSealTag row wins over seal tag fields for the same barcode.
func MergeGuardRecords(guardTags []*trip.GuardSealTag, sealTags []*trip.SealTag) []GuardScanRecord {
	out := make([]GuardScanRecord, 0, len(guardTags)+len(sealTags))
	seen := map[string]bool{}
	for _, g := range guardTags {
		if g == nil {
			continue
		}
		r := FromGuardSealTag(g)
		if r.Key == "" || seen[r.Key] {
			continue
		}
		seen[r.Key] = true
		out = append(out, r)
	}
	for _, t := range sealTags {
		r, ok := FromSealTagGuard(t)
		if !ok || r.Key == "" || seen[r.Key] {
			continue
		}
		seen[r.Key] = true
		out = append(out, r)
	}
	return out
}

// GuardRecords returns the guard side of a session. Structured data wins;
// the legacy verification blob is read only when no structured record exists.
func GuardRecords(guardTags []*trip.GuardSealTag, sealTags []*trip.SealTag, verificationData []byte) ([]GuardScanRecord, bool) {
	if merged := MergeGuardRecords(guardTags, sealTags); len(merged) > 0 {
		return merged, false
	}
	return ExtractLegacyGuardTags(verificationData)
}
