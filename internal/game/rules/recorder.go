package rules

// Recorder receives fire-and-forget solve notifications for shared progress
// statistics. Implementations must not block the reducer; failures are their
// own to swallow.
type Recorder interface {
	RecordSolve(puzzleKey string)
}

// NopRecorder discards solve notifications.
type NopRecorder struct{}

// RecordSolve implements Recorder.
func (NopRecorder) RecordSolve(string) {}
