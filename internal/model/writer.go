package model

// Writer defines a generic interface for persisting the reports produced by an
// analysis run.
type Writer interface {
	// Write takes a data payload and persists it. The implementation is
	// expected to know how to handle the payload type it receives.
	Write(payload interface{}, timestamp string) error
}
