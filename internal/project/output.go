package project

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/piwi3910/BarCut/internal/engine"
	"github.com/piwi3910/BarCut/internal/model"
)

// SaveResponse writes resp as indented JSON, creating parent directories.
func SaveResponse(path string, resp engine.Response) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

var cutListHeader = []string{
	"bar", "order", "piece_id", "profile", "length", "work_order", "color", "size", "priority", "leftover",
}

func formatMM(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteCutList writes one CSV row per cut in saw order. The leftover column
// is only filled on the last cut of each bar.
func WriteCutList(w io.Writer, plan model.CuttingPlan) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(cutListHeader); err != nil {
		return err
	}
	for _, s := range plan.Stocks {
		for _, seg := range s.Segments {
			leftover := ""
			if seg.Order == len(s.Segments)-1 {
				leftover = formatMM(s.Leftover)
			}
			row := []string{
				strconv.Itoa(s.Index + 1),
				strconv.Itoa(seg.Order + 1),
				seg.Piece.ID,
				seg.Piece.ProfileType,
				formatMM(seg.Length),
				seg.Piece.WorkOrderID,
				seg.Piece.Color,
				seg.Piece.Size,
				strconv.Itoa(seg.Piece.Priority),
				leftover,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCutList writes the cut list of plan to path.
func SaveCutList(path string, plan model.CuttingPlan) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCutList(f, plan); err != nil {
		f.Close()
		return fmt.Errorf("write cut list: %w", err)
	}
	return f.Close()
}
