// Package curve builds SoC-over-time tables from a vehicle's charging
// curve, and answers "how much SoC would charging for this long add"
// queries against them.
package curve

import (
	"fmt"
	"math"

	"stationelectrify/internal/model"
)

// Point is one (time_minutes, soc) sample of a built table.
type Point struct {
	TimeMin float64
	SOC     float64
}

// Table is a strictly increasing (in both axes) SoC-over-time curve for
// one (vehicle type, charging type), starting at (0, 0) and ending at
// (T_full, 1).
type Table []Point

// Key identifies a table in a Builder's cache.
type Key struct {
	VehicleType  string
	ChargingType model.ChargingType
}

// Params configures the forward Euler-trapezoidal integration.
type Params struct {
	// GridCapKW caps the power drawn from the grid; zero means unlimited.
	GridCapKW float64
	// EfficiencyFrac is eta in (0, 1].
	EfficiencyFrac float64
	// StepMin is the integration step in minutes.
	StepMin float64
}

// Builder produces SoC-over-time tables for every (vehicle type,
// charging type) pair in a registry.
type Builder struct {
	Params Params
}

// NewBuilder validates and returns a Builder.
func NewBuilder(p Params) (*Builder, error) {
	if p.EfficiencyFrac <= 0 || p.EfficiencyFrac > 1 {
		return nil, fmt.Errorf("curve: efficiency must be in (0, 1], got %v", p.EfficiencyFrac)
	}
	if p.StepMin <= 0 {
		return nil, fmt.Errorf("curve: step must be > 0, got %v", p.StepMin)
	}
	if p.GridCapKW == 0 {
		p.GridCapKW = math.Inf(1)
	}
	return &Builder{Params: p}, nil
}

// BuildAll builds one table per (vehicle type, charging type) entry in
// reg.
func (b *Builder) BuildAll(reg model.VehicleRegistry) (map[Key]Table, error) {
	out := make(map[Key]Table, len(reg))
	for vType, byChType := range reg {
		for chType, params := range byChType {
			tbl, err := b.Build(params)
			if err != nil {
				return nil, fmt.Errorf("curve: building table for %s/%s: %w", vType, chType, err)
			}
			out[Key{VehicleType: vType, ChargingType: chType}] = tbl
		}
	}
	return out, nil
}

// Build runs the forward Euler-trapezoidal integration described in spec
// §4.1: starting from (t=0, s=0), at each step interpolate instantaneous
// power linearly from the breakpoints at s and at a tentative s', take the
// mean times efficiency, advance s by (step/60)*p/capacity. Stops when s
// >= 1 and appends the terminal (t, 1).
func (b *Builder) Build(v model.VehicleTypeParams) (Table, error) {
	if v.CapacityKWh <= 0 {
		return nil, fmt.Errorf("curve: capacity must be > 0, got %v", v.CapacityKWh)
	}
	if len(v.ChargingCurve) < 2 {
		return nil, fmt.Errorf("curve: charging curve needs at least 2 breakpoints")
	}

	// Normalize power breakpoints to SoC/hour fractions of capacity, so
	// the integration step directly advances SoC.
	socs := make([]float64, len(v.ChargingCurve))
	fracPerHour := make([]float64, len(v.ChargingCurve))
	for i, bp := range v.ChargingCurve {
		socs[i] = bp.SOC
		p := math.Min(bp.PowerKW, b.Params.GridCapKW)
		fracPerHour[i] = p / v.CapacityKWh
	}

	table := make(Table, 0, 256)
	soc := 0.0
	t := 0.0
	step := b.Params.StepMin
	for soc < 1 {
		table = append(table, Point{TimeMin: t, SOC: soc})

		p1 := interp(socs, fracPerHour, soc)
		socTentative := soc + (step/60)*p1
		p2 := interp(socs, fracPerHour, socTentative)
		p := (p1 + p2) / 2 * b.Params.EfficiencyFrac

		soc += (step / 60) * p
		t += step

		if step <= 0 || math.IsNaN(soc) {
			return nil, fmt.Errorf("curve: integration diverged at t=%v", t)
		}
	}
	table = append(table, Point{TimeMin: t, SOC: 1})
	return table, nil
}

// interp linearly interpolates y at x given non-decreasing xs, clamping
// to the first/last sample outside the range.
func interp(xs, ys []float64, x float64) float64 {
	if x <= xs[0] {
		return ys[0]
	}
	last := len(xs) - 1
	if x >= xs[last] {
		return ys[last]
	}
	for i := 1; i <= last; i++ {
		if x <= xs[i] {
			x0, x1 := xs[i-1], xs[i]
			y0, y1 := ys[i-1], ys[i]
			if x1 == x0 {
				return y1
			}
			frac := (x - x0) / (x1 - x0)
			return y0 + frac*(y1-y0)
		}
	}
	return ys[last]
}

// DeltaSoC returns the SoC gained by charging for dtMin minutes starting
// from soc0: find the first row with soc >= max(soc0, 0); look up soc at
// t0+dtMin (clamped to the last row, giving 1.0); return
// min(1, soc_at - soc0). For dtMin == 0, returns 0.
func (t Table) DeltaSoC(soc0, dtMin float64) float64 {
	if dtMin == 0 {
		return 0
	}
	start := math.Max(soc0, 0)

	t0 := t[len(t)-1].TimeMin
	for _, row := range t {
		if row.SOC >= start {
			t0 = row.TimeMin
			break
		}
	}

	target := t0 + dtMin
	socAt := 1.0
	last := t[len(t)-1]
	if target < last.TimeMin {
		for _, row := range t {
			if row.TimeMin >= target {
				socAt = row.SOC
				break
			}
		}
	}

	delta := socAt - soc0
	if delta > 1 {
		delta = 1
	}
	return delta
}
