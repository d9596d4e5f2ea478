package model

// UnknownSOC is the sentinel magnitude used for a not-yet-simulated SoC
// sample. It sits far outside the physical [lo, 1] range so that it never
// reads as a deficit: the event extractor treats any sample at or above
// this value as "not in deficit".
const UnknownSOC = 999.0

// IsUnknownSOC reports whether soc is the sentinel value.
func IsUnknownSOC(soc float64) bool {
	return soc >= UnknownSOC
}

// SoCTrace is one vehicle's state-of-charge timeseries at a fixed step.
type SoCTrace []float64

// Clone returns an independent copy, safe to mutate without affecting the
// baseline. The Fast SoC Kernel and Search Driver clone traces on branch
// entry and restore the baseline on branch failure.
func (s SoCTrace) Clone() SoCTrace {
	out := make(SoCTrace, len(s))
	copy(out, s)
	return out
}

// Sanitize back-propagates the next known value into any run of unknown
// (sentinel) samples, so that every index holds a real reading. The
// rightmost known value wins backwards.
func (s SoCTrace) Sanitize() {
	lastKnown := 0.0
	haveKnown := false
	for i := len(s) - 1; i >= 0; i-- {
		if !IsUnknownSOC(s[i]) {
			lastKnown = s[i]
			haveKnown = true
			continue
		}
		if haveKnown {
			s[i] = lastKnown
		}
	}
}

// Traces maps a vehicle ID to its SoC trace.
type Traces map[string]SoCTrace

// Clone deep-copies every trace, used when branching the search.
func (t Traces) Clone() Traces {
	out := make(Traces, len(t))
	for id, trace := range t {
		out[id] = trace.Clone()
	}
	return out
}
