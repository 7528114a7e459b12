package sealcheck

import "github.com/yungbote/tripseal-backend/internal/domain/trip"

// Classification partitions the guard set. Matched and Mismatched are disjoint
// and together cover every distinct guard barcode. Missing lists operator seals
// no guard has scanned yet; it does not affect the partition.
type Classification struct {
	Matched    []GuardScanRecord `json:"matched"`
	Mismatched []GuardScanRecord `json:"mismatched"`
	Missing    []OperatorSeal    `json:"missing"`
}

func (c Classification) AllMatched() bool {
	return len(c.Mismatched) == 0 && len(c.Missing) == 0
}

func Classify(operator []OperatorSeal, guard []GuardScanRecord) Classification {
	out := Classification{
		Matched:    []GuardScanRecord{},
		Mismatched: []GuardScanRecord{},
		Missing:    []OperatorSeal{},
	}
	opKeys := make(map[string]bool, len(operator))
	for _, o := range operator {
		opKeys[keyOf(o.Key, o.Barcode)] = true
	}
	guardKeys := make(map[string]bool, len(guard))
	for _, g := range guard {
		k := keyOf(g.Key, g.Barcode)
		if k == "" || guardKeys[k] {
			continue
		}
		guardKeys[k] = true
		if opKeys[k] {
			out.Matched = append(out.Matched, g)
		} else {
			out.Mismatched = append(out.Mismatched, g)
		}
	}
	seenMissing := map[string]bool{}
	for _, o := range operator {
		k := keyOf(o.Key, o.Barcode)
		if k == "" || guardKeys[k] || seenMissing[k] {
			continue
		}
		seenMissing[k] = true
		out.Missing = append(out.Missing, o)
	}
	return out
}

// ClassifyBarcodes is Classify over raw barcode strings.
func ClassifyBarcodes(operator, guard []string) (matched, mismatched []string) {
	ops := make([]OperatorSeal, 0, len(operator))
	for _, b := range operator {
		ops = append(ops, OperatorSeal{Barcode: b})
	}
	gs := make([]GuardScanRecord, 0, len(guard))
	for _, b := range guard {
		gs = append(gs, GuardScanRecord{Barcode: b})
	}
	c := Classify(ops, gs)
	matched = make([]string, 0, len(c.Matched))
	for _, g := range c.Matched {
		matched = append(matched, g.Barcode)
	}
	mismatched = make([]string, 0, len(c.Mismatched))
	for _, g := range c.Mismatched {
		mismatched = append(mismatched, g.Barcode)
	}
	return matched, mismatched
}

// Barcodes lists the barcodes of records in order.
func Barcodes(records []GuardScanRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Barcode)
	}
	return out
}

func OperatorBarcodes(seals []OperatorSeal) []string {
	out := make([]string, 0, len(seals))
	for _, s := range seals {
		out = append(out, s.Barcode)
	}
	return out
}

func keyOf(key, barcode string) string {
	if key != "" {
		return key
	}
	return trip.NormalizeBarcode(barcode)
}
