package events

import "time"

// OperationStart is emitted before a validated operation is sent.
type OperationStart struct {
	// Operation is "query" or "mutation".
	Operation string
	Root      string
	Document  string
}

// OperationFinish is emitted after the response was decoded or the operation
// failed.
type OperationFinish struct {
	Operation string
	Root      string
	Document  string
	Err       error
	Duration  time.Duration
}
