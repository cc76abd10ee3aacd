package table

import (
	"fmt"

	"github.com/tonktable/tonkd/internal/statemachine"
)

// seatStateFn is a table-membership state function following the Rob Pike
// pattern of the generic internal/statemachine package; here it drives a
// seated player's lifecycle rather than an in-hand poker state.
type seatStateFn = statemachine.StateFn[Seat]

// Seat is one occupied seat at a table, independent of in-round
// PlayerState (which lives in the rules engine and is recreated each
// round). Seat tracks membership across rounds: active, queued to leave,
// or gone.
type Seat struct {
	UserID   string
	Username string
	IsAI     bool

	LeavingAfterRound bool
	Disconnected      bool

	sm *statemachine.StateMachine[Seat]
}

// NewSeat creates a seat in the active state.
func NewSeat(userID, username string, isAI bool) *Seat {
	s := &Seat{UserID: userID, Username: username, IsAI: isAI}
	s.sm = statemachine.New(s, seatStateActive)
	return s
}

func seatStateActive(entity *Seat, callback func(stateName string, event statemachine.StateEvent)) seatStateFn {
	if entity.Disconnected {
		if callback != nil {
			callback("ACTIVE", statemachine.StateExited)
		}
		return seatStateLeft
	}
	if entity.LeavingAfterRound {
		if callback != nil {
			callback("ACTIVE", statemachine.StateExited)
		}
		return seatStateLeavingAfterRound
	}

	if callback != nil {
		callback("ACTIVE", statemachine.StateEntered)
	}
	return seatStateActive
}

func seatStateLeavingAfterRound(entity *Seat, callback func(stateName string, event statemachine.StateEvent)) seatStateFn {
	if entity.Disconnected {
		if callback != nil {
			callback("LEAVING_AFTER_ROUND", statemachine.StateExited)
		}
		return seatStateLeft
	}
	if !entity.LeavingAfterRound {
		if callback != nil {
			callback("LEAVING_AFTER_ROUND", statemachine.StateExited)
		}
		return seatStateActive
	}

	if callback != nil {
		callback("LEAVING_AFTER_ROUND", statemachine.StateEntered)
	}
	return seatStateLeavingAfterRound
}

func seatStateLeft(entity *Seat, callback func(stateName string, event statemachine.StateEvent)) seatStateFn {
	entity.Disconnected = true
	if callback != nil {
		callback("LEFT", statemachine.StateEntered)
	}
	return nil
}

// RequestLeaveAfterRound marks the seat to be dropped once the current
// round ends, without touching in-progress game state.
func (s *Seat) RequestLeaveAfterRound() {
	s.LeavingAfterRound = true
	s.sm.Dispatch(nil)
}

// MarkDisconnected transitions the seat to LEFT immediately, used for
// Leave and Disconnect. Two Dispatch calls are needed regardless of the
// state ACTIVE or LEAVING_AFTER_ROUND started in: the first consults
// Disconnected and steps onto seatStateLeft, the second actually runs
// seatStateLeft and lands on the terminal nil state IsLeft checks for.
func (s *Seat) MarkDisconnected() {
	s.Disconnected = true
	s.sm.Dispatch(nil)
	s.sm.Dispatch(nil)
}

// State returns the seat's current lifecycle state name.
func (s *Seat) State() string {
	cur := s.sm.CurrentState()
	if cur == nil {
		return "LEFT"
	}
	switch fmt.Sprintf("%p", cur) {
	case fmt.Sprintf("%p", seatStateActive):
		return "ACTIVE"
	case fmt.Sprintf("%p", seatStateLeavingAfterRound):
		return "LEAVING_AFTER_ROUND"
	default:
		return "UNKNOWN"
	}
}

// IsLeft reports whether the seat has fully departed.
func (s *Seat) IsLeft() bool {
	return s.sm.CurrentState() == nil
}
