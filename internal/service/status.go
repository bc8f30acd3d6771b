package service

import (
	"fmt"

	"plumbstore/internal/model"
)

// statusMachine applies the configured transition policy. Orders and plumber requests each own one.
type statusMachine struct {
	policy model.TransitionPolicy
}

func newStatusMachine(policy model.TransitionPolicy) statusMachine {
	if !model.ValidPolicy(policy) {
		policy = model.PolicyStrict
	}
	return statusMachine{policy: policy}
}

// parse validates raw input before any write happens.
func (m statusMachine) parse(raw string) (model.Status, error) {
	status, ok := model.ParseStatus(raw)
	if !ok {
		return "", model.ErrInvalidStatus
	}
	return status, nil
}

// check reports whether from -> to requires a write. Re-applying the current status is a no-op.
func (m statusMachine) check(from, to model.Status) (bool, error) {
	if from == to {
		return false, nil
	}
	if !model.CanTransition(m.policy, from, to) {
		return false, model.ValidationError(
			model.ErrCodeInvalidStatusTransition,
			fmt.Sprintf("cannot change status from %s to %s", from, to),
		)
	}
	return true, nil
}
