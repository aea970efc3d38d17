package model

import "fmt"

// ValidationError reports malformed input. Field names the offending input
// using request paths such as "pieces[2].length".
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// InfeasibleError reports a piece that cannot fit an empty bar.
type InfeasibleError struct {
	Field   string
	PieceID string
	Length  float64
	Usable  float64
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("%s: piece %s of %.1fmm exceeds usable bar length %.1fmm", e.Field, e.PieceID, e.Length, e.Usable)
}
