// Package governor implements the post-run, threshold-driven state
// machine that decides whether a sub-session needs nothing, a memory
// snapshot, or a full rehydrate.
package governor

import "time"

// Action is the governor's decision.
type Action string

const (
	ActionOK        Action = "ok"
	ActionSnapshot  Action = "snapshot"
	ActionRehydrate Action = "rehydrate"
)

const (
	turnsSnapshotThreshold    = 7
	turnsRehydrateThreshold   = 12
	bytesSnapshotThreshold    = 90_000
	bytesRehydrateThreshold   = 150_000
	filesSnapshotThreshold    = 10
	filesRehydrateThreshold   = 18
	diffSnapshotThreshold     = 160
	diffRehydrateThreshold    = 280
	elapsedSnapshotThreshold  = 25 * time.Minute
	elapsedRehydrateThreshold = 50 * time.Minute

	minReasonsToFire = 2

	ReasonTurnPressure    = "turn-pressure"
	ReasonBytePressure    = "byte-pressure"
	ReasonFilesPressure   = "files-pressure"
	ReasonDiffPressure    = "diff-pressure"
	ReasonElapsedPressure = "elapsed-pressure"
)

// Signals are the governor's inputs, computed by the caller from the
// current SessionState and this turn's repo probe/event-detector output.
type Signals struct {
	TurnsSinceSnapshot   int
	TotalInjectedBytes   int
	ChangedFilesCount    int
	DiffLines            int
	ElapsedSinceSnapshot time.Duration // set to a very large value if no prior snapshot
}

// Capabilities gates which decisions the governor is permitted to return.
type Capabilities struct {
	SnapshotEnabled  bool
	RehydrateEnabled bool
}

// Decision is the governor's output: the (possibly capability-degraded)
// action, plus the reasons that fired for that action's tier.
type Decision struct {
	Action  Action
	Reasons []string
}

// Decide implements spec §4.10, including capability gating.
func Decide(s Signals, caps Capabilities) Decision {
	rehydrateReasons := fire(s, true)
	if len(rehydrateReasons) >= minReasonsToFire {
		return gate(Decision{Action: ActionRehydrate, Reasons: rehydrateReasons}, caps)
	}

	snapshotReasons := fire(s, false)
	if len(snapshotReasons) >= minReasonsToFire {
		return gate(Decision{Action: ActionSnapshot, Reasons: snapshotReasons}, caps)
	}

	return Decision{Action: ActionOK, Reasons: nil}
}

func fire(s Signals, rehydrateLevel bool) []string {
	var reasons []string
	add := func(fires bool, reason string) {
		if fires {
			reasons = append(reasons, reason)
		}
	}

	if rehydrateLevel {
		add(s.TurnsSinceSnapshot >= turnsRehydrateThreshold, ReasonTurnPressure)
		add(s.TotalInjectedBytes >= bytesRehydrateThreshold, ReasonBytePressure)
		add(s.ChangedFilesCount >= filesRehydrateThreshold, ReasonFilesPressure)
		add(s.DiffLines >= diffRehydrateThreshold, ReasonDiffPressure)
		add(s.ElapsedSinceSnapshot >= elapsedRehydrateThreshold, ReasonElapsedPressure)
	} else {
		add(s.TurnsSinceSnapshot >= turnsSnapshotThreshold, ReasonTurnPressure)
		add(s.TotalInjectedBytes >= bytesSnapshotThreshold, ReasonBytePressure)
		add(s.ChangedFilesCount >= filesSnapshotThreshold, ReasonFilesPressure)
		add(s.DiffLines >= diffSnapshotThreshold, ReasonDiffPressure)
		add(s.ElapsedSinceSnapshot >= elapsedSnapshotThreshold, ReasonElapsedPressure)
	}
	return reasons
}

// gate implements capability gating: rehydrate degrades to snapshot (if
// enabled) else ok; snapshot degrades to ok if disabled.
func gate(d Decision, caps Capabilities) Decision {
	if d.Action == ActionRehydrate && !caps.RehydrateEnabled {
		if caps.SnapshotEnabled {
			return Decision{Action: ActionSnapshot, Reasons: d.Reasons}
		}
		return Decision{Action: ActionOK, Reasons: nil}
	}
	if d.Action == ActionSnapshot && !caps.SnapshotEnabled {
		return Decision{Action: ActionOK, Reasons: nil}
	}
	return d
}
