// Package project reads solve requests from YAML or JSON files and writes
// responses and cut lists back to disk.
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/piwi3910/BarCut/internal/engine"
	"github.com/piwi3910/BarCut/internal/importer"
	"github.com/piwi3910/BarCut/internal/model"
	"gopkg.in/yaml.v3"
)

// Defaults fill the fields a request file leaves out.
type Defaults struct {
	StockLength  float64
	Settings     model.CutSettings
	Strategy     model.Strategy
	TimeBudgetMs *int64
	Acceleration bool
}

// DefaultDefaults returns the built-in fallbacks.
func DefaultDefaults() Defaults {
	return Defaults{
		StockLength: model.DefaultStockLength,
		Settings:    model.DefaultSettings(),
		Strategy:    model.StrategyFFD,
	}
}

// File is the on-disk form of a request. PiecesFile names a CSV or Excel
// cutting list, relative to the request file, whose pieces are appended
// to the inline ones.
type File struct {
	engine.Request `yaml:",inline"`
	PiecesFile     string `yaml:"pieces_file,omitempty"`
}

// LoadRequest reads a request file. JSON is accepted as a YAML subset.
func LoadRequest(path string, d Defaults) (engine.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return engine.Request{}, fmt.Errorf("request: read %s: %w", path, err)
	}
	return ParseRequest(data, filepath.Dir(path), d)
}

// ParseRequest decodes a request and resolves PiecesFile against baseDir.
func ParseRequest(data []byte, baseDir string, d Defaults) (engine.Request, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return engine.Request{}, fmt.Errorf("request: parse: %w", err)
	}

	if f.PiecesFile != "" {
		path := f.PiecesFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		res := importer.Import(path)
		if err := res.Err(); err != nil {
			return engine.Request{}, fmt.Errorf("request: pieces_file %s: %w", f.PiecesFile, err)
		}
		f.Pieces = append(f.Pieces, res.Pieces...)
	}

	f.applyDefaults(d)
	if err := f.validate(); err != nil {
		return engine.Request{}, err
	}
	return f.Request, nil
}

func (f *File) applyDefaults(d Defaults) {
	if f.StockLength == 0 {
		f.StockLength = d.StockLength
	}
	if f.Strategy == "" {
		f.Strategy = d.Strategy
	}
	f.Strategy = model.ParseStrategy(string(f.Strategy))
	if f.Kerf == nil {
		kerf := d.Settings.Kerf
		f.Kerf = &kerf
	}
	if f.SafetyMargins == nil {
		margins := d.Settings.Margins
		f.SafetyMargins = &margins
	}
	if f.ScrapThreshold == nil {
		threshold := d.Settings.ScrapThreshold
		f.ScrapThreshold = &threshold
	}
	if f.TimeBudgetMs == nil && d.TimeBudgetMs != nil {
		ms := *d.TimeBudgetMs
		f.TimeBudgetMs = &ms
	}
	f.Acceleration = f.Acceleration || d.Acceleration

	for i := range f.Pieces {
		if f.Pieces[i].ID == "" {
			f.Pieces[i].ID = uuid.New().String()[:8]
		}
	}
}

// validate catches file-level mistakes; value checks are left to the solver
// so that they come back as typed errors.
func (f *File) validate() error {
	var errs []string
	if len(f.Pieces) == 0 {
		errs = append(errs, "pieces or pieces_file is required")
	}
	if !f.Strategy.Valid() {
		errs = append(errs, fmt.Sprintf("unknown strategy %q", f.Strategy))
	}
	seen := make(map[string]int, len(f.Pieces))
	for i, p := range f.Pieces {
		if j, dup := seen[p.ID]; dup {
			errs = append(errs, fmt.Sprintf("pieces[%d].id %q duplicates pieces[%d]", i, p.ID, j))
			continue
		}
		seen[p.ID] = i
	}
	if len(errs) > 0 {
		return fmt.Errorf("request: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
