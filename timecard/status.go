package timecard

// =============================================================================
// STATUS - Approval state machine
// =============================================================================
//
//   pending_approval ──► approved ──► completed
//          │
//          └──────────► rejected
//
// Compliance checks run at any status. Manager-approval flags and consent
// overrides only change the outcome while an entry is still pending.

type Status string

const (
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusCompleted       Status = "completed"
	StatusRejected        Status = "rejected"
)

var transitions = map[Status][]Status{
	StatusPendingApproval: {StatusApproved, StatusRejected},
	StatusApproved:        {StatusCompleted},
}

func (s Status) Valid() bool {
	switch s {
	case StatusPendingApproval, StatusApproved, StatusCompleted, StatusRejected:
		return true
	}
	return false
}

// Locked reports whether entries in this status may no longer be overwritten.
func (s Status) Locked() bool {
	return s == StatusApproved || s == StatusCompleted || s == StatusRejected
}

// CountsTowardPay reports whether the entry is part of approved time.
func (s Status) CountsTowardPay() bool {
	return s == StatusApproved || s == StatusCompleted
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if st == "" {
		return StatusPendingApproval, nil
	}
	if !st.Valid() {
		return "", &FieldError{Field: "status", Value: s, Err: ErrUnknownStatus}
	}
	return st, nil
}

// Transition moves the entry to the given status.
func (e *TimeEntry) Transition(to Status) error {
	from := e.Status
	if from == "" {
		from = StatusPendingApproval
	}
	if !to.Valid() {
		return &FieldError{Field: "status", Value: string(to), Err: ErrUnknownStatus}
	}
	if !CanTransition(from, to) {
		return &FieldError{Field: "status", Value: string(from) + " -> " + string(to), Err: ErrInvalidTransition}
	}
	e.Status = to
	return nil
}
