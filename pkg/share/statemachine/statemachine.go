// Package statemachine implements the guarded transition tables for share
// objects and share items. The machines are pure: they compute target
// states and reject illegal edges, persistence belongs to the caller so a
// transition and its item updates commit in one unit of work.
package statemachine

import (
	"fmt"

	"github.com/lakegate/lakegate/pkg/share/models"
)

// transition maps an action's target states to the source states allowed to
// reach them. A state that is already a target is treated as a no-op rather
// than an error, which keeps bulk item updates idempotent.
type transition[S comparable] struct {
	name    string
	targets map[S][]S
}

// isSource reports whether prev is an explicit source state of the
// transition. A state that is already a target is not a source, so callers
// that must reject already-at-target no-ops check this before run.
func (t transition[S]) isSource(prev S) bool {
	for _, sources := range t.targets {
		for _, s := range sources {
			if s == prev {
				return true
			}
		}
	}
	return false
}

// run returns the target state for prev, prev itself when the transition is
// a no-op, or models.ErrInvalidTransition.
func (t transition[S]) run(prev S) (S, error) {
	if _, isTarget := t.targets[prev]; isTarget {
		return prev, nil
	}
	for target, sources := range t.targets {
		for _, s := range sources {
			if s == prev {
				return target, nil
			}
		}
	}
	var zero S
	return zero, fmt.Errorf("%w: action %s from state %v", models.ErrInvalidTransition, t.name, prev)
}
