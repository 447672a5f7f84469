package parking

import (
	"strings"

	"github.com/pkg/errors"
)

// ScanState is the position of a scan attempt in the park workflow.
type ScanState int

const (
	StateIdle ScanState = iota
	StateAwaitingBicycleSelection
	StateAwaitingPermission
	StateScanning
	StateAwaitingConfirmation
	StateUpdating
)

var scanStateNames = map[ScanState]string{
	StateIdle:                     "idle",
	StateAwaitingBicycleSelection: "awaiting-bicycle-selection",
	StateAwaitingPermission:       "awaiting-permission",
	StateScanning:                 "scanning",
	StateAwaitingConfirmation:     "awaiting-confirmation",
	StateUpdating:                 "updating",
}

func (s ScanState) String() string {
	if name, ok := scanStateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Attempt is a read-only view of the current scan attempt.
type Attempt struct {
	ID        string // changes whenever a new attempt starts or the attempt is reset
	State     ScanState
	BicycleID string
	ZoneID    string // candidate zone once a code has been decoded
	Message   string // last user-facing message
}

// ExitLockPolicy decides how concurrent exits are serialised.
type ExitLockPolicy int

const (
	// ExitLockPerBicycle blocks a second exit for the same bicycle only.
	ExitLockPerBicycle ExitLockPolicy = iota
	// ExitLockGlobal blocks every exit while any exit is in flight.
	ExitLockGlobal
)

func (p ExitLockPolicy) String() string {
	if p == ExitLockGlobal {
		return "global"
	}
	return "per-bicycle"
}

func ParseExitLockPolicy(s string) (ExitLockPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "per-bicycle":
		return ExitLockPerBicycle, nil
	case "global":
		return ExitLockGlobal, nil
	default:
		return ExitLockPerBicycle, errors.Errorf("unknown exit lock policy %q", s)
	}
}
