package events

import (
	"net/http"
	"time"
)

// HTTPRequestStart is emitted before each attempt to post a document.
type HTTPRequestStart struct {
	Request *http.Request
	Attempt int
}

// HTTPRequestFinish is emitted when an attempt completes. Status is zero when
// no response was received.
type HTTPRequestFinish struct {
	Request  *http.Request
	Attempt  int
	Status   int
	Err      error
	Duration time.Duration
}
