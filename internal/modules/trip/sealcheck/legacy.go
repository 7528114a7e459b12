package sealcheck

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/yungbote/tripseal-backend/internal/domain/trip"
)

// ExtractLegacyGuardTags reads guard seal data from a seal's legacy
// verificationData blob. Keys of guardImages mentioning seal, tag or barcode
// are candidates. String values are image references, arrays are expanded per
// index and objects are read for id, method, image and verified sub-fields.
// Objects carrying "verified": false are dropped so they never count as a guard
// scan. It never fails: anything unreadable yields (nil, false).
func ExtractLegacyGuardTags(raw []byte) ([]GuardScanRecord, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var root map[string]any
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, false
	}
	images, ok := root["guardImages"].(map[string]any)
	if !ok {
		return nil, false
	}

	keys := make([]string, 0, len(images))
	for k := range images {
		if isCandidateKey(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var out []GuardScanRecord
	seen := map[string]bool{}
	add := func(r GuardScanRecord) {
		r.Barcode = strings.TrimSpace(r.Barcode)
		r.Key = trip.NormalizeBarcode(r.Barcode)
		if !r.Verified || r.Key == "" || seen[r.Key] {
			return
		}
		seen[r.Key] = true
		r.Source = SourceLegacy
		out = append(out, r)
	}

	for _, k := range keys {
		base := legacyID(k)
		switch v := images[k].(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				add(GuardScanRecord{Barcode: base, ImageRef: v, Verified: true})
			}
		case []any:
			for i, item := range v {
				fallback := fmt.Sprintf("%s-%d", base, i+1)
				switch it := item.(type) {
				case string:
					if strings.TrimSpace(it) != "" {
						add(GuardScanRecord{Barcode: fallback, ImageRef: it, Verified: true})
					}
				case map[string]any:
					add(readLegacyObject(it, fallback))
				}
			}
		case map[string]any:
			add(readLegacyObject(v, base))
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

func isCandidateKey(k string) bool {
	l := strings.ToLower(k)
	return strings.Contains(l, "seal") || strings.Contains(l, "tag") || strings.Contains(l, "barcode")
}

// legacyID strips a descriptive prefix such as "sealTag_" from a key.
func legacyID(k string) string {
	trimmed := strings.TrimSpace(k)
	lower := strings.ToLower(trimmed)
	for _, prefix := range []string{"sealtags", "sealtag", "seal", "tags", "tag", "barcode"} {
		if !strings.HasPrefix(lower, prefix) {
			continue
		}
		if rest := strings.TrimLeft(trimmed[len(prefix):], "_-:. "); rest != "" {
			return rest
		}
		break
	}
	return trimmed
}

func readLegacyObject(obj map[string]any, fallbackID string) GuardScanRecord {
	r := GuardScanRecord{Barcode: fallbackID}
	for _, k := range []string{"id", "barcode", "sealId", "tagId", "code"} {
		if s, ok := obj[k].(string); ok && strings.TrimSpace(s) != "" {
			r.Barcode = s
			break
		}
	}
	if s, ok := obj["method"].(string); ok {
		r.Method = trip.NormalizeMethod(s)
	}
	for _, k := range []string{"image", "imageUrl", "url", "imageData"} {
		if s, ok := obj[k].(string); ok && strings.TrimSpace(s) != "" {
			r.ImageRef = s
			break
		}
	}
	r.Verified = true
	if b, ok := obj["verified"].(bool); ok {
		r.Verified = b
	}
	if r.Verified {
		r.Status = trip.GuardStatusVerified
	}
	return r
}
