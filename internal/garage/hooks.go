package garage

import "time"

// Severity classifies a user-facing notice.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Audio cues requested by vehicle operations.
const (
	CueIgnition = "ignition"
	CueHonk     = "honk"
	CueTurbo    = "turbo"
)

// Display hints passed through to the notification sink.
const (
	shortNotice   = 2 * time.Second
	defaultNotice = 3 * time.Second
	longNotice    = 4 * time.Second
)

// Hooks bundles the side effects a vehicle operation may request from the
// application holding the fleet. Any nil field is skipped.
type Hooks struct {
	Notify         func(message string, severity Severity, duration time.Duration)
	PlayCue        func(cue string)
	OnStateChanged func()
	PersistFleet   func()
}

func (h Hooks) notice(message string, severity Severity, duration time.Duration) {
	if h.Notify != nil {
		h.Notify(message, severity, duration)
	}
}

func (h Hooks) cue(name string) {
	if h.PlayCue != nil {
		h.PlayCue(name)
	}
}

// committed runs after every successful mutation.
func (h Hooks) committed() {
	if h.OnStateChanged != nil {
		h.OnStateChanged()
	}
	if h.PersistFleet != nil {
		h.PersistFleet()
	}
}
