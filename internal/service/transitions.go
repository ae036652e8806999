package service

import (
	"slices"

	"orderdesk/internal/config"
	"orderdesk/internal/model"
)

// TransitionPolicy decides whether an order may move between two statuses.
type TransitionPolicy interface {
	Allows(from, to model.OrderStatus) bool
}

// orderStateTransitions is the sanctioned lifecycle. Cancelled and refunded
// are terminal.
var orderStateTransitions = map[model.OrderStatus][]model.OrderStatus{
	model.StatusPending:    {model.StatusConfirmed, model.StatusCancelled},
	model.StatusConfirmed:  {model.StatusProcessing, model.StatusCancelled},
	model.StatusProcessing: {model.StatusShipped, model.StatusCancelled},
	model.StatusShipped:    {model.StatusDelivered},
	model.StatusDelivered:  {model.StatusRefunded},
}

type strictTransitions struct{}

func (strictTransitions) Allows(from, to model.OrderStatus) bool {
	return slices.Contains(orderStateTransitions[from], to)
}

// permissiveTransitions accepts any change of status.
type permissiveTransitions struct{}

func (permissiveTransitions) Allows(from, to model.OrderStatus) bool {
	return from != to && to.Valid()
}

// NewTransitionPolicy maps a configured policy name to its implementation.
// Unknown names get the strict graph.
func NewTransitionPolicy(name string) TransitionPolicy {
	if name == config.TransitionPolicyPermissive {
		return permissiveTransitions{}
	}
	return strictTransitions{}
}

// NextStatuses lists the statuses reachable from s under the strict graph.
func NextStatuses(s model.OrderStatus) []model.OrderStatus {
	return slices.Clone(orderStateTransitions[s])
}
