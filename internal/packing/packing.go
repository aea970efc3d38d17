// Package packing holds the kerf-aware bar arithmetic shared by every solver.
// All functions are pure: parameters are passed explicitly and input bars are
// never modified.
package packing

import "github.com/piwi3910/BarCut/internal/model"

// Epsilon absorbs floating-point drift when comparing lengths in mm.
const Epsilon = 1e-9

// Params carries the physical parameters of a run.
type Params struct {
	Kerf           float64
	Margins        model.SafetyMargins
	ScrapThreshold float64
}

// FromSettings converts run settings into packing parameters.
func FromSettings(s model.CutSettings) Params {
	return Params{Kerf: s.Kerf, Margins: s.Margins, ScrapThreshold: s.ScrapThreshold}
}

// Settings converts packing parameters back into run settings.
func (p Params) Settings() model.CutSettings {
	return model.CutSettings{Kerf: p.Kerf, Margins: p.Margins, ScrapThreshold: p.ScrapThreshold}
}

// UsableLength returns the nominal length minus both safety margins.
func (p Params) UsableLength(nominal float64) float64 {
	return nominal - p.Margins.Total()
}

// Open returns an empty bar.
func (p Params) Open(index int, nominal float64) model.Stock {
	usable := p.UsableLength(nominal)
	return model.Stock{
		Index:    index,
		Nominal:  nominal,
		Usable:   usable,
		Leftover: usable,
	}
}

// RemainingCapacity returns the length still free on the bar.
func RemainingCapacity(s model.Stock) float64 {
	return s.Usable - s.Used
}

// Required returns the length a piece consumes when added to s: its own
// length, plus one kerf separating it from the previous segment.
func (p Params) Required(s model.Stock, length float64) float64 {
	if s.IsEmpty() {
		return length
	}
	return length + p.Kerf
}

// CanFit reports whether a piece of the given length fits on s.
func (p Params) CanFit(s model.Stock, length float64) bool {
	return p.Required(s, length) <= RemainingCapacity(s)+Epsilon
}

// LeftoverAfter returns the free length that would remain after placing.
// It is negative when the piece does not fit.
func (p Params) LeftoverAfter(s model.Stock, length float64) float64 {
	return RemainingCapacity(s) - p.Required(s, length)
}

// Place returns a new bar with piece appended as the last segment. The
// previous last segment gains the kerf of the separating cut. The caller must
// have checked CanFit.
func (p Params) Place(s model.Stock, piece model.Piece) model.Stock {
	segments := make([]model.Segment, len(s.Segments), len(s.Segments)+1)
	copy(segments, s.Segments)

	used := s.Used
	if n := len(segments); n > 0 {
		segments[n-1].Consumed += p.Kerf
		used += p.Kerf
	}
	segments = append(segments, model.Segment{
		Piece:    piece,
		Order:    len(segments),
		Length:   piece.Length,
		Consumed: piece.Length,
	})
	used += piece.Length

	next := s
	next.Segments = segments
	next.Used = used
	next.Leftover = s.Usable - used
	if next.Leftover < 0 && next.Leftover > -Epsilon {
		next.Leftover = 0
	}
	return next
}

// CloseBar classifies the final leftover. A leftover at or above the scrap
// threshold is reusable scrap; anything shorter is waste.
func (p Params) CloseBar(s model.Stock) (waste, scrap float64) {
	if s.Leftover >= p.ScrapThreshold {
		return 0, s.Leftover
	}
	return s.Leftover, 0
}

// Consumed returns the summed consumption of all segments on s.
func Consumed(s model.Stock) float64 {
	var total float64
	for _, seg := range s.Segments {
		total += seg.Consumed
	}
	return total
}
