package comanda

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyInState is returned when a transition targets the current
	// state. Callers treat it as success.
	ErrAlreadyInState = errors.New("already in state")
	// ErrIllegalTransition is returned for backward or unknown transitions.
	ErrIllegalTransition = errors.New("illegal transition")
	// ErrNoAuthority is returned when the kitchen tries to write a state it
	// may only observe.
	ErrNoAuthority = errors.New("kitchen cannot set this state")
	// ErrDishRemoved is returned when acting on a removed dish.
	ErrDishRemoved = errors.New("dish removed")
)

// IsBenign reports whether err represents an idempotent no-op.
func IsBenign(err error) bool {
	return errors.Is(err, ErrAlreadyInState)
}

// CanTransition checks a kitchen-initiated dish transition.
func CanTransition(from, to DishState) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown target %q", ErrIllegalTransition, to)
	}
	if to == DishDelivered {
		return ErrNoAuthority
	}
	if from == to {
		return ErrAlreadyInState
	}
	// A dish that was already handed over counts as ready.
	if from == DishDelivered && to == DishReady {
		return ErrAlreadyInState
	}
	if from.rank() < 0 || to.rank() < from.rank() {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return nil
}

// CanMarkReady checks whether d can move to ready_for_pickup.
func CanMarkReady(d Dish) error {
	if d.Removed {
		return ErrDishRemoved
	}
	return CanTransition(d.State, DishReady)
}

// CanRemove checks whether d may be taken off its order. Only dishes still in
// the kitchen (waiting or preparing) can be removed.
func CanRemove(d Dish) error {
	if d.Removed {
		return ErrDishRemoved
	}
	switch d.State {
	case DishWaiting, DishPreparing:
		return nil
	}
	return fmt.Errorf("%w: cannot remove a %s dish", ErrIllegalTransition, d.State)
}

func done(s DishState) bool {
	return s == DishReady || s == DishDelivered
}

// ReadyForPickup reports whether every non-removed dish is ready or delivered
// and at least one such dish exists.
func ReadyForPickup(o Order) bool {
	found := false
	for _, d := range o.Dishes {
		if d.Removed {
			continue
		}
		if !done(d.State) {
			return false
		}
		found = true
	}
	return found
}

// Aggregate derives the order status from its dishes. A recorded order status
// further along than the dishes suggest wins, since only the backend moves an
// order to delivered.
func Aggregate(o Order) OrderStatus {
	derived := OrderWaiting
	if ReadyForPickup(o) {
		derived = OrderReady
		allDelivered := true
		for _, d := range o.Dishes {
			if !d.Removed && d.State != DishDelivered {
				allDelivered = false
				break
			}
		}
		if allDelivered {
			derived = OrderDelivered
		}
	}
	if orderRank(o.Status) > orderRank(derived) {
		return o.Status
	}
	return derived
}

func orderRank(s OrderStatus) int {
	switch s {
	case OrderWaiting:
		return 0
	case OrderReady:
		return 1
	case OrderDelivered:
		return 2
	}
	return -1
}
