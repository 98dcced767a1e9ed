// Package policy implements the ready-set ordering used by short-term
// dispatch as a pure comparator over a sum type, rather than a virtual
// scheduling-policy hierarchy.
package policy

import (
	"fmt"
	"strings"

	"github.com/sisoputnfrba/go-procsched/internal/procmodel"
)

// Policy selects which comparator DynamicVictimChannel orders its ready set
// by.
type Policy int

const (
	FCFS Policy = iota
	RR
	Priority
)

func (p Policy) String() string {
	switch p {
	case FCFS:
		return "FCFS"
	case RR:
		return "RR"
	case Priority:
		return "PRIORITY"
	default:
		return "UNKNOWN"
	}
}

// Parse recognizes the case-insensitive policy names a configuration file
// or CLI flag would carry.
func Parse(token string) (Policy, error) {
	switch strings.ToLower(token) {
	case "fcfs":
		return FCFS, nil
	case "rr":
		return RR, nil
	case "priority":
		return Priority, nil
	default:
		return FCFS, fmt.Errorf("policy: unrecognized scheduling policy %q", token)
	}
}

// Less reports whether a should be ordered ahead of b under policy p —
// FCFS and RR both order by ascending last-active tick (arrival/requeue
// order), Priority orders by descending priority — with PID ascending as
// the tiebreak in every case so ordering stays a total order regardless of
// policy.
func Less(a, b *procmodel.Process, p Policy) bool {
	switch p {
	case Priority:
		if a.Priority() != b.Priority() {
			return a.Priority() > b.Priority()
		}
		return a.ID() < b.ID()
	default: // FCFS, RR
		if a.LastActiveTick() != b.LastActiveTick() {
			return a.LastActiveTick() < b.LastActiveTick()
		}
		return a.ID() < b.ID()
	}
}
