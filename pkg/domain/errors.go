package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrInvalidBody is returned when a step's request body is not syntactically
// valid JSON. The step cannot be dispatched until the body is fixed.
var ErrInvalidBody = errors.New("request body is not valid JSON")

// ErrStepOrder is returned when a step is executed before the previous step
// has produced a successful result.
var ErrStepOrder = errors.New("previous step has not completed successfully")

// ErrChallengePending is returned when step 3 is attempted while a 3DS
// challenge is still awaiting operator resolution.
var ErrChallengePending = errors.New("challenge pending operator resolution")

// ErrNoChallengePending is returned when the operator resolves or cancels a
// challenge that was never presented.
var ErrNoChallengePending = errors.New("no challenge pending")

// ErrSessionCompleted is returned when a completed session is asked to step
// again. A fresh run requires an explicit reset.
var ErrSessionCompleted = errors.New("session completed; reset to start a new run")

// ErrUnknownStep is returned for step numbers outside 1..3.
var ErrUnknownStep = errors.New("unknown step number")
