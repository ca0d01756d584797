package regime

import "math"

// Status is the full finite-state-machine state: the current label and
// how many observations it has persisted.
type Status struct {
	State State
	Dwell int
}

// Transition advances the state machine by one observation. It is a pure
// function of (config, status, score, volProxy) and is what makes the
// hysteresis/dwell behavior unit-testable in isolation.
//
// Rules:
//   - a state younger than MinDwell needs score to clear the adjacent
//     boundary by Hysteresis*1.5 to exit, otherwise Hysteresis suffices;
//   - Balanced is exempt and exits as soon as its raw threshold is crossed;
//   - any transition resets the dwell counter;
//   - the volatility gate can demote an entry into the top state.
func Transition(cfg Config, cur Status, score, volProxy float64) Status {
	if math.IsNaN(score) {
		score = 0.0
	}

	cand := classifyRaw(cfg, score)
	cand = applyVolGate(cfg, cand, volProxy)
	if cand == cur.State {
		return Status{State: cur.State, Dwell: cur.Dwell + 1}
	}

	margin := cfg.Hysteresis
	if cur.Dwell < cfg.MinDwell {
		margin *= dwellPenalty
	}
	if cur.State == Balanced {
		margin = 0
	}

	bounds := cfg.boundaries()
	idx := stateIndex(cfg, cur.State)

	if cand > cur.State {
		if idx >= len(bounds) || score <= bounds[idx]+margin {
			return Status{State: cur.State, Dwell: cur.Dwell + 1}
		}
	} else {
		if idx <= 0 || score >= bounds[idx-1]-margin {
			return Status{State: cur.State, Dwell: cur.Dwell + 1}
		}
	}

	return Status{State: cand, Dwell: 0}
}

// stateIndex returns the position of st within the taxonomy's ordered
// label set, clamping unknown states to Balanced's slot.
func stateIndex(cfg Config, st State) int {
	for i, s := range cfg.states() {
		if s == st {
			return i
		}
	}
	return len(cfg.states()) / 2
}
