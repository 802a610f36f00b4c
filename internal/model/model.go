package model

// Frame is a single CAN message as it appears in a candump log line.
// Frames are immutable once parsed.
type Frame struct {
	// Timestamp in seconds. Monotonic non-decreasing in source order.
	Timestamp float64
	// ID is the hex identifier, e.g. "244".
	ID string
	// Payload is the opaque data field of the frame.
	Payload []byte
}

// VoltageSample is one row of an oscilloscope voltage capture.
type VoltageSample struct {
	Time     float64 // milliseconds
	ChannelA float64 // volts
	ChannelB float64 // volts
}
