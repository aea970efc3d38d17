package model

import (
	"fmt"
	"math"
)

// MaxInstances caps the total number of piece instances in one request.
// Every instance is materialized before packing starts.
const MaxInstances = 100_000

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

func notFinite(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

// ValidateSettings checks the run parameters against a nominal bar length.
func ValidateSettings(stockLength float64, s CutSettings) error {
	switch {
	case notFinite(stockLength) || stockLength <= 0:
		return invalid("stock_length", "must be positive")
	case notFinite(s.Kerf) || s.Kerf < 0:
		return invalid("kerf", "must not be negative")
	case notFinite(s.Margins.Leading) || s.Margins.Leading < 0:
		return invalid("safety_margins.leading", "must not be negative")
	case notFinite(s.Margins.Trailing) || s.Margins.Trailing < 0:
		return invalid("safety_margins.trailing", "must not be negative")
	case notFinite(s.ScrapThreshold) || s.ScrapThreshold < 0:
		return invalid("scrap_threshold", "must not be negative")
	case s.UsableLength(stockLength) <= 0:
		return invalid("safety_margins", "leave no usable bar length")
	}
	return nil
}

// ValidateInput checks pieces and settings before any bar is opened.
// Malformed values yield *ValidationError. A well-formed piece longer than
// the usable bar yields *InfeasibleError.
func ValidateInput(pieces []Piece, stockLength float64, s CutSettings) error {
	if err := ValidateSettings(stockLength, s); err != nil {
		return err
	}
	if len(pieces) == 0 {
		return invalid("pieces", "at least one piece is required")
	}
	total := 0
	for i, p := range pieces {
		if notFinite(p.Length) || p.Length <= 0 {
			return invalid(fmt.Sprintf("pieces[%d].length", i), "must be positive")
		}
		if p.Quantity <= 0 {
			return invalid(fmt.Sprintf("pieces[%d].quantity", i), "must be positive")
		}
		if p.Quantity > MaxInstances-total {
			return invalid(fmt.Sprintf("pieces[%d].quantity", i),
				fmt.Sprintf("total piece instances exceed the limit of %d", MaxInstances))
		}
		total += p.Quantity
	}

	usable := s.UsableLength(stockLength)
	for i, p := range pieces {
		if p.Length > usable {
			return &InfeasibleError{
				Field:   fmt.Sprintf("pieces[%d].length", i),
				PieceID: p.ID,
				Length:  p.Length,
				Usable:  usable,
			}
		}
	}
	return nil
}

// TotalQuantity returns the number of piece instances requested.
func TotalQuantity(pieces []Piece) int {
	n := 0
	for _, p := range pieces {
		n += p.Quantity
	}
	return n
}

// TotalLength returns the summed length of every requested instance.
func TotalLength(pieces []Piece) float64 {
	var total float64
	for _, p := range pieces {
		total += p.Length * float64(p.Quantity)
	}
	return total
}
