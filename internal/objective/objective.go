// Package objective scores cutting plans on efficiency, waste and cost.
// Scoring is pure: the same plan, rates and weights always give the same score.
package objective

import (
	"math"

	"github.com/piwi3910/BarCut/internal/model"
	"github.com/shopspring/decimal"
)

// moneyPlaces is the rounding applied to each cost term.
const moneyPlaces = 4

// CostRates are the unit rates behind the six cost terms.
type CostRates struct {
	MaterialPerMeter float64 `json:"material_per_meter" yaml:"material_per_meter"` // per meter of opened bar
	PerCut           float64 `json:"per_cut" yaml:"per_cut"`
	SetupPerBar      float64 `json:"setup_per_bar" yaml:"setup_per_bar"`
	WastePerMeter    float64 `json:"waste_per_meter" yaml:"waste_per_meter"` // per meter not recovered as scrap
	LaborPerHour     float64 `json:"labor_per_hour" yaml:"labor_per_hour"`
	EnergyPerKWh     float64 `json:"energy_per_kwh" yaml:"energy_per_kwh"`
	SecondsPerCut    float64 `json:"seconds_per_cut" yaml:"seconds_per_cut"`
	MachinePowerKW   float64 `json:"machine_power_kw" yaml:"machine_power_kw"`
}

func DefaultRates() CostRates {
	return CostRates{
		MaterialPerMeter: 8.50,
		PerCut:           0.15,
		SetupPerBar:      1.20,
		WastePerMeter:    0.40,
		LaborPerHour:     35.00,
		EnergyPerKWh:     0.25,
		SecondsPerCut:    12,
		MachinePowerKW:   2.2,
	}
}

// Weights trade efficiency against cost in the composite score.
type Weights struct {
	Efficiency float64 `json:"efficiency" yaml:"efficiency"`
	Cost       float64 `json:"cost" yaml:"cost"`
}

func DefaultWeights() Weights {
	return Weights{Efficiency: 1.0, Cost: 0.1}
}

// Validate rejects negative or non-finite rates. Fields are reported under
// "rates.".
func (r CostRates) Validate() error {
	return checkNonNegative("rates.", []namedValue{
		{"material_per_meter", r.MaterialPerMeter},
		{"per_cut", r.PerCut},
		{"setup_per_bar", r.SetupPerBar},
		{"waste_per_meter", r.WastePerMeter},
		{"labor_per_hour", r.LaborPerHour},
		{"energy_per_kwh", r.EnergyPerKWh},
		{"seconds_per_cut", r.SecondsPerCut},
		{"machine_power_kw", r.MachinePowerKW},
	})
}

// Validate rejects negative or non-finite weights.
func (w Weights) Validate() error {
	return checkNonNegative("weights.", []namedValue{
		{"efficiency", w.Efficiency},
		{"cost", w.Cost},
	})
}

type namedValue struct {
	name  string
	value float64
}

func checkNonNegative(prefix string, values []namedValue) error {
	for _, v := range values {
		if math.IsNaN(v.value) || math.IsInf(v.value, 0) || v.value < 0 {
			return &model.ValidationError{Field: prefix + v.name, Message: "must be a finite non-negative number"}
		}
	}
	return nil
}

// CostBreakdown itemizes the cost of a plan.
type CostBreakdown struct {
	Material float64 `json:"material"`
	Cutting  float64 `json:"cutting"`
	Setup    float64 `json:"setup"`
	Waste    float64 `json:"waste"`
	Time     float64 `json:"time"`
	Energy   float64 `json:"energy"`
}

// Score is the evaluation of one plan.
type Score struct {
	Efficiency float64       `json:"efficiency"` // percent
	Waste      float64       `json:"waste"`      // mm of opened bar not used by pieces or kerf
	Cost       float64       `json:"cost"`
	Breakdown  CostBreakdown `json:"breakdown"`
	Composite  float64       `json:"composite"`
}

// Evaluator binds rates and weights.
type Evaluator struct {
	Rates   CostRates
	Weights Weights
}

// New returns an evaluator for the given rates and weights.
func New(rates CostRates, weights Weights) Evaluator {
	return Evaluator{Rates: rates, Weights: weights}
}

// Validate checks the bound rates and weights.
func (e Evaluator) Validate() error {
	if err := e.Rates.Validate(); err != nil {
		return err
	}
	return e.Weights.Validate()
}

// Score evaluates plan.
func (e Evaluator) Score(plan model.CuttingPlan) Score {
	return Evaluate(plan, e.Rates, e.Weights)
}

// Evaluate computes efficiency, waste, cost and the composite score.
func Evaluate(plan model.CuttingPlan, rates CostRates, weights Weights) Score {
	opened := float64(plan.BarsUsed) * plan.StockLength

	var s Score
	if opened > 0 {
		s.Efficiency = plan.UsedLength / opened * 100
	}
	s.Waste = opened - plan.UsedLength
	s.Breakdown = costOf(plan, s.Waste, rates)
	s.Cost = s.Breakdown.Total()
	s.Composite = weights.Efficiency*s.Efficiency - weights.Cost*s.Cost
	return s
}

// Total sums the six terms in decimal arithmetic.
func (b CostBreakdown) Total() float64 {
	sum := decimal.Zero
	for _, v := range []float64{b.Material, b.Cutting, b.Setup, b.Waste, b.Time, b.Energy} {
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	return sum.Round(moneyPlaces).InexactFloat64()
}

func term(quantity decimal.Decimal, rate float64) float64 {
	return quantity.Mul(decimal.NewFromFloat(rate)).Round(moneyPlaces).InexactFloat64()
}

func costOf(plan model.CuttingPlan, waste float64, r CostRates) CostBreakdown {
	thousand := decimal.NewFromInt(1000)
	bars := decimal.NewFromInt(int64(plan.BarsUsed))
	cuts := decimal.NewFromInt(int64(plan.TotalCuts()))

	openedMeters := bars.Mul(decimal.NewFromFloat(plan.StockLength)).Div(thousand)
	lostMeters := decimal.NewFromFloat(waste - plan.TotalScrap).Div(thousand)
	if lostMeters.IsNegative() {
		lostMeters = decimal.Zero
	}
	hours := cuts.Mul(decimal.NewFromFloat(r.SecondsPerCut)).Div(decimal.NewFromInt(3600))
	kwh := hours.Mul(decimal.NewFromFloat(r.MachinePowerKW))

	return CostBreakdown{
		Material: term(openedMeters, r.MaterialPerMeter),
		Cutting:  term(cuts, r.PerCut),
		Setup:    term(bars, r.SetupPerBar),
		Waste:    term(lostMeters, r.WastePerMeter),
		Time:     term(hours, r.LaborPerHour),
		Energy:   term(kwh, r.EnergyPerKWh),
	}
}
