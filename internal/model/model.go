package model

import (
	"strings"

	"github.com/google/uuid"
)

// Piece is a request to cut Quantity instances of a profile at Length.
// Provenance fields never affect packing but travel with every segment.
type Piece struct {
	ID          string  `json:"id" yaml:"id"`
	ProfileType string  `json:"profile_type" yaml:"profile_type"`
	Length      float64 `json:"length" yaml:"length"` // mm
	Quantity    int     `json:"quantity" yaml:"quantity"`
	WorkOrderID string  `json:"work_order_id,omitempty" yaml:"work_order_id,omitempty"`
	Color       string  `json:"color,omitempty" yaml:"color,omitempty"`
	Size        string  `json:"size,omitempty" yaml:"size,omitempty"`
	Priority    int     `json:"priority,omitempty" yaml:"priority,omitempty"`
}

func NewPiece(profileType string, length float64, qty int) Piece {
	return Piece{
		ID:          uuid.New().String()[:8],
		ProfileType: profileType,
		Length:      length,
		Quantity:    qty,
	}
}

// WithQuantity returns a copy of the piece carrying qty.
func (p Piece) WithQuantity(qty int) Piece {
	cp := p
	cp.Quantity = qty
	return cp
}

// StockDefinition is a nominal bar length available in unlimited supply.
type StockDefinition struct {
	Label  string  `json:"label,omitempty" yaml:"label,omitempty"`
	Length float64 `json:"length" yaml:"length"` // mm
}

// Strategy names a solving strategy.
type Strategy string

const (
	StrategyFFD            Strategy = "FFD"              // First-fit decreasing
	StrategyBFD            Strategy = "BFD"              // Best-fit decreasing
	StrategyNFD            Strategy = "NFD"              // Next-fit decreasing
	StrategyWFD            Strategy = "WFD"              // Worst-fit decreasing
	StrategyGenetic        Strategy = "GENETIC"          // Permutation GA decoded with first-fit
	StrategyAnnealing      Strategy = "ANNEALING"        // Simulated annealing over permutations
	StrategyBranchAndBound Strategy = "BRANCH_AND_BOUND" // Exact search for small instances
)

// Strategies lists every known strategy in presentation order.
func Strategies() []Strategy {
	return []Strategy{
		StrategyFFD, StrategyBFD, StrategyNFD, StrategyWFD,
		StrategyGenetic, StrategyAnnealing, StrategyBranchAndBound,
	}
}

// Valid reports whether s is one of the known strategies.
func (s Strategy) Valid() bool {
	for _, known := range Strategies() {
		if s == known {
			return true
		}
	}
	return false
}

// ParseStrategy normalizes a user-supplied strategy name. The result still
// needs Valid.
func ParseStrategy(name string) Strategy {
	return Strategy(strings.ToUpper(strings.TrimSpace(name)))
}

// SafetyMargins reserve length at both ends of every bar.
type SafetyMargins struct {
	Leading  float64 `json:"leading" yaml:"leading"`   // mm
	Trailing float64 `json:"trailing" yaml:"trailing"` // mm
}

// Total returns the combined reserved length.
func (m SafetyMargins) Total() float64 {
	return m.Leading + m.Trailing
}

// CutSettings holds the physical parameters of one solving run.
type CutSettings struct {
	Kerf           float64       `json:"kerf" yaml:"kerf"` // mm lost per cut
	Margins        SafetyMargins `json:"safety_margins" yaml:"safety_margins"`
	ScrapThreshold float64       `json:"scrap_threshold" yaml:"scrap_threshold"` // leftovers at or above this are reusable
}

const (
	DefaultKerf           = 3.5
	DefaultMargin         = 2.0
	DefaultScrapThreshold = 75.0
	DefaultStockLength    = 6100.0
)

func DefaultSettings() CutSettings {
	return CutSettings{
		Kerf:           DefaultKerf,
		Margins:        SafetyMargins{Leading: DefaultMargin, Trailing: DefaultMargin},
		ScrapThreshold: DefaultScrapThreshold,
	}
}

// UsableLength returns the nominal length minus both safety margins.
func (s CutSettings) UsableLength(nominal float64) float64 {
	return nominal - s.Margins.Total()
}

// IsScrap reports whether a leftover is long enough to be reused.
// The threshold itself counts as scrap.
func (s CutSettings) IsScrap(leftover float64) bool {
	return leftover >= s.ScrapThreshold
}

// Segment is one placed piece instance within a bar.
type Segment struct {
	Piece    Piece   `json:"piece"`
	Order    int     `json:"order"`    // 0-based placement order within the bar
	Length   float64 `json:"length"`   // mm
	Consumed float64 `json:"consumed"` // length plus trailing kerf, length only for the last segment
}

// Stock is an opened bar. Used + Leftover always equals Usable.
type Stock struct {
	Index    int       `json:"index"`
	Nominal  float64   `json:"nominal"`
	Usable   float64   `json:"usable"`
	Segments []Segment `json:"segments"`
	Used     float64   `json:"used"`
	Leftover float64   `json:"leftover"`
}

// IsEmpty reports whether no piece has been placed on the bar.
func (s Stock) IsEmpty() bool {
	return len(s.Segments) == 0
}

// PieceLength returns the summed length of placed pieces, excluding kerf.
func (s Stock) PieceLength() float64 {
	var total float64
	for _, seg := range s.Segments {
		total += seg.Length
	}
	return total
}

// KerfLoss returns the material consumed by cuts between pieces.
func (s Stock) KerfLoss() float64 {
	return s.Used - s.PieceLength()
}

// Cuts returns the number of saw cuts needed to free every piece on the bar.
func (s Stock) Cuts() int {
	return len(s.Segments)
}

// CuttingPlan is the immutable result of a solving run.
type CuttingPlan struct {
	Strategy    Strategy    `json:"strategy"`
	StockLength float64     `json:"stock_length"`
	Settings    CutSettings `json:"settings"`
	Stocks      []Stock     `json:"stocks"`
	BarsUsed    int         `json:"bars_used"`
	PieceCount  int         `json:"piece_count"`
	PieceLength float64     `json:"piece_length"` // sum of placed piece lengths
	KerfLoss    float64     `json:"kerf_loss"`
	UsedLength  float64     `json:"used_length"` // piece length plus kerf loss
	MarginLoss  float64     `json:"margin_loss"`
	TotalWaste  float64     `json:"total_waste"` // leftovers below the scrap threshold
	TotalScrap  float64     `json:"total_scrap"` // leftovers at or above the scrap threshold
	Efficiency  float64     `json:"efficiency"`  // percent of opened nominal length used
	Cost        float64     `json:"cost"`
	Offcuts     []Offcut    `json:"offcuts,omitempty"`
}

// NewCuttingPlan aggregates metrics over the given bars. The slice is copied.
func NewCuttingPlan(strategy Strategy, stockLength float64, settings CutSettings, stocks []Stock) CuttingPlan {
	plan := CuttingPlan{
		Strategy:    strategy,
		StockLength: stockLength,
		Settings:    settings,
		Stocks:      make([]Stock, len(stocks)),
		BarsUsed:    len(stocks),
	}
	copy(plan.Stocks, stocks)

	for _, s := range plan.Stocks {
		plan.PieceCount += len(s.Segments)
		plan.PieceLength += s.PieceLength()
		plan.UsedLength += s.Used
		plan.MarginLoss += s.Nominal - s.Usable
		if settings.IsScrap(s.Leftover) {
			plan.TotalScrap += s.Leftover
		} else {
			plan.TotalWaste += s.Leftover
		}
	}
	plan.KerfLoss = plan.UsedLength - plan.PieceLength

	if total := float64(plan.BarsUsed) * stockLength; total > 0 {
		plan.Efficiency = plan.UsedLength / total * 100
	}
	plan.Offcuts = DetectOffcuts(plan.Stocks, settings.ScrapThreshold)
	return plan
}

// WithCost returns a copy of the plan carrying the evaluated cost.
func (p CuttingPlan) WithCost(cost float64) CuttingPlan {
	cp := p
	cp.Cost = cost
	return cp
}

// Waste returns opened nominal length not consumed by pieces or kerf.
// It includes margins and every leftover regardless of classification.
func (p CuttingPlan) Waste() float64 {
	return float64(p.BarsUsed)*p.StockLength - p.UsedLength
}

// TotalCuts returns the number of saw cuts across all bars.
func (p CuttingPlan) TotalCuts() int {
	n := 0
	for _, s := range p.Stocks {
		n += s.Cuts()
	}
	return n
}
