// Package kernel recomputes a vehicle's SoC trace in-process after a
// station is electrified, instead of re-invoking the external simulator
// for every candidate. It trades exactness for speed: the search driver
// calls it dozens of times per group before ever touching the simulator.
package kernel

import (
	"fmt"
	"math"

	"stationelectrify/internal/curve"
	"stationelectrify/internal/model"
)

// ClipEpsilon bounds how far above 1.0 a recomputed SoC value may sit
// before it is treated as a kernel defect rather than float noise.
const ClipEpsilon = 1e-6

const maxClipIterations = 64

// Visit describes one stop a vehicle makes at a newly electrified
// station during one event's window.
type Visit struct {
	ArrivalIdx   int
	DepartureIdx int // exclusive; charging ramp occupies [ArrivalIdx, DepartureIdx)
	StandingMin  float64
}

// Apply charges trace at visit using tbl, then repairs any SoC values
// pushed above 1.0 by the added energy. It does not mutate trace; it
// returns an updated copy.
//
// The update has four steps: save the pre-charge window, add the full
// delta to everything from DepartureIdx onward (the energy persists for
// the rest of the rotation), restore the window to its pre-charge values,
// then add a linear ramp from 0 to delta onto each saved window value, so
// SoC rises during charging and stays lifted afterwards.
// Only after the ramp is in place is the trace checked for and repaired
// of SoC above 1.0 that the added energy may have produced.
func Apply(trace model.SoCTrace, visit Visit, tbl curve.Table, capacityKWh float64) (model.SoCTrace, error) {
	if visit.ArrivalIdx < 0 || visit.DepartureIdx <= visit.ArrivalIdx || visit.DepartureIdx > len(trace) {
		return nil, fmt.Errorf("kernel: invalid visit window [%d,%d) over trace of length %d", visit.ArrivalIdx, visit.DepartureIdx, len(trace))
	}

	out := trace.Clone()
	startSOC := out[visit.ArrivalIdx]
	delta := tbl.DeltaSoC(startSOC, visit.StandingMin)
	if delta <= 0 {
		return out, nil
	}

	window := make([]float64, visit.DepartureIdx-visit.ArrivalIdx)
	copy(window, out[visit.ArrivalIdx:visit.DepartureIdx])

	for i := visit.DepartureIdx; i < len(out); i++ {
		if model.IsUnknownSOC(out[i]) {
			continue
		}
		out[i] += delta
	}

	copy(out[visit.ArrivalIdx:visit.DepartureIdx], window)

	n := len(window)
	for i := 0; i < n; i++ {
		frac := 0.0
		if n > 1 {
			frac = float64(i) / float64(n-1)
		}
		out[visit.ArrivalIdx+i] = window[i] + frac*delta
	}

	if err := clipOverflow(out); err != nil {
		return nil, err
	}
	return out, nil
}

// clipOverflow repairs SoC values driven above 1.0 by a charging ramp. It
// repeatedly locates the leftmost index whose value is above 1 and whose
// next value is a decrease (a local maximum, or the trace's last index,
// which is always treated as such), subtracts that index's excess over 1
// from it and from every index after it (a permanent, tail-wide
// reduction), and clamps any still-over-1 value before that index down to
// exactly 1. It gives up after a bounded number of passes since each pass
// strictly lowers the trace's maximum.
func clipOverflow(trace model.SoCTrace) error {
	n := len(trace)
	for pass := 0; pass < maxClipIterations; pass++ {
		if maxSOC(trace) <= 1+ClipEpsilon {
			break
		}

		idx := -1
		for i := 0; i < n; i++ {
			if model.IsUnknownSOC(trace[i]) || trace[i] <= 1 {
				continue
			}
			diff := -1.0
			if i < n-1 && !model.IsUnknownSOC(trace[i+1]) {
				diff = trace[i+1] - trace[i]
			}
			if diff < 0 {
				idx = i
				break
			}
		}
		if idx == -1 {
			break
		}

		excess := trace[idx] - 1
		for i := idx; i < n; i++ {
			if model.IsUnknownSOC(trace[i]) {
				continue
			}
			trace[i] -= excess
		}
		for i := 0; i < idx; i++ {
			if !model.IsUnknownSOC(trace[i]) && trace[i] > 1 {
				trace[i] = 1
			}
		}
	}

	for _, v := range trace {
		if model.IsUnknownSOC(v) {
			continue
		}
		if math.IsNaN(v) {
			return fmt.Errorf("kernel: produced NaN SoC value")
		}
		if v > 1+ClipEpsilon {
			return fmt.Errorf("kernel: SoC %.6f still above 1+epsilon after clipping", v)
		}
	}
	return nil
}

func maxSOC(trace model.SoCTrace) float64 {
	max := -math.MaxFloat64
	for _, v := range trace {
		if model.IsUnknownSOC(v) {
			continue
		}
		if v > max {
			max = v
		}
	}
	return max
}
