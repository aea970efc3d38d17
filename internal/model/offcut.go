package model

import "sort"

// Offcut is a bar leftover long enough to be stored and reused.
type Offcut struct {
	BarIndex int     `json:"bar_index"`
	Length   float64 `json:"length"` // mm
}

// DetectOffcuts lists the leftovers at or above threshold, longest first.
// Equal lengths keep bar order.
func DetectOffcuts(stocks []Stock, threshold float64) []Offcut {
	var offcuts []Offcut
	for _, s := range stocks {
		if s.Leftover >= threshold && s.Leftover > 0 {
			offcuts = append(offcuts, Offcut{BarIndex: s.Index, Length: s.Leftover})
		}
	}

	sort.SliceStable(offcuts, func(i, j int) bool {
		return offcuts[i].Length > offcuts[j].Length
	})
	return offcuts
}

// TotalOffcutLength returns the summed length of all offcuts.
func TotalOffcutLength(offcuts []Offcut) float64 {
	var total float64
	for _, o := range offcuts {
		total += o.Length
	}
	return total
}
