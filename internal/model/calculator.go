package model

import "math"

// BarEstimate is a purchase estimate derived from total length alone.
type BarEstimate struct {
	TotalPieceLength float64 `json:"total_piece_length"` // mm, without kerf
	KerfAllowance    float64 `json:"kerf_allowance"`     // mm, one kerf per instance
	UsableLength     float64 `json:"usable_length"`      // mm per bar
	BarsExact        float64 `json:"bars_exact"`
	BarsMin          int     `json:"bars_min"` // no plan can use fewer bars
}

// EstimateBars computes a lower bound on the number of bars.
// Every instance is charged one kerf and every bar is credited one kerf, since
// the last segment on a bar carries no trailing cut.
func EstimateBars(pieces []Piece, stockLength float64, s CutSettings) BarEstimate {
	usable := s.UsableLength(stockLength)
	est := BarEstimate{
		TotalPieceLength: TotalLength(pieces),
		KerfAllowance:    s.Kerf * float64(TotalQuantity(pieces)),
		UsableLength:     usable,
	}
	capacity := usable + s.Kerf
	if capacity <= 0 {
		return est
	}
	est.BarsExact = (est.TotalPieceLength + est.KerfAllowance) / capacity
	est.BarsMin = int(math.Ceil(est.BarsExact - 1e-9))
	return est
}
