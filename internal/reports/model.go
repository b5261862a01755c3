package reports

import "time"

// ErrorMarker prefixes the body of a report whose analysis failed.
const ErrorMarker = "⚠️ analysis error: "

// State describes whether a session has produced any reports yet.
type State string

const (
	StateEmpty      State = "empty"
	StateHasHistory State = "has-history"
)

// Report is one analyzed image in a session's history.
type Report struct {
	ID        string
	SessionID string
	Seq       int
	FileName  string
	Body      string
	Failed    bool
	CreatedAt time.Time
}

// StateOf returns the session state implied by history.
func StateOf(history []Report) State {
	if len(history) == 0 {
		return StateEmpty
	}
	return StateHasHistory
}
