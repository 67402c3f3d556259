package domain

// lifecycle transition table. Keys are current states, values the states a
// record may move to next. Terminal states have no entries. A provider
// accept moves PROCESSING back to INITIATED (external id persisted, call
// ringing, callback pending); callbacks may land while the record is in
// INITIATED, PROCESSING or RETRYING depending on worker/provider timing.
var allowedTransitions = map[CallStatus]map[CallStatus]bool{
	CallInitiated: {
		CallProcessing:   true,
		CallCompleted:    true,
		CallPicked:       true,
		CallDisconnected: true,
		CallRNR:          true,
		CallFailed:       true,
	},
	CallProcessing: {
		CallInitiated:    true,
		CallPicked:       true,
		CallCompleted:    true,
		CallDisconnected: true,
		CallRNR:          true,
		CallFailed:       true,
	},
	CallPicked: {
		CallCompleted: true,
	},
	CallDisconnected: {
		CallRetrying: true,
		CallFailed:   true,
	},
	CallRNR: {
		CallRetrying: true,
		CallFailed:   true,
	},
	CallRetrying: {
		CallProcessing:   true,
		CallPicked:       true,
		CallCompleted:    true,
		CallDisconnected: true,
		CallRNR:          true,
		CallFailed:       true,
	},
}

// CanTransition reports whether a record in `from` may move to `to`.
func CanTransition(from, to CallStatus) bool {
	return allowedTransitions[from][to]
}

// HasAttemptsLeft reports whether another retry attempt is permitted.
func (c *CallRecord) HasAttemptsLeft() bool {
	return c.AttemptCount < c.MaxAttempts
}
