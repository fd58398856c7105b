// Package notify delivers vehicle notices, audio cues and refresh requests to
// whoever is watching the garage.
package notify

import (
	"encoding/json"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/garage/internal/garage"
)

// Notice is a user-facing message raised by a vehicle operation. On the wire
// Duration is sent as whole milliseconds in "duration_ms".
type Notice struct {
	VehicleID string          `json:"vehicle_id"`
	Message   string          `json:"message"`
	Severity  garage.Severity `json:"severity"`
	Duration  time.Duration   `json:"-"`
	At        time.Time       `json:"at"`
}

type noticeFields Notice

type noticeWire struct {
	noticeFields
	DurationMS int64 `json:"duration_ms"`
}

func (n Notice) MarshalJSON() ([]byte, error) {
	return json.Marshal(noticeWire{noticeFields: noticeFields(n), DurationMS: n.Duration.Milliseconds()})
}

func (n *Notice) UnmarshalJSON(data []byte) error {
	var w noticeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*n = Notice(w.noticeFields)
	n.Duration = time.Duration(w.DurationMS) * time.Millisecond
	return nil
}

// Sink receives garage side effects. Implementations must not block for long;
// callers treat every method as fire-and-forget.
type Sink interface {
	Notify(n Notice)
	Cue(vehicleID, cue string)
	Refresh(vehicleID string)
}

// Multi fans out to several sinks in order.
type Multi []Sink

func (m Multi) Notify(n Notice) {
	for _, s := range m {
		s.Notify(n)
	}
}

func (m Multi) Cue(vehicleID, cue string) {
	for _, s := range m {
		s.Cue(vehicleID, cue)
	}
}

func (m Multi) Refresh(vehicleID string) {
	for _, s := range m {
		s.Refresh(vehicleID)
	}
}

// LogSink writes everything to logrus.
type LogSink struct {
	Logger log.FieldLogger
}

func (s LogSink) logger() log.FieldLogger {
	if s.Logger == nil {
		return log.StandardLogger()
	}
	return s.Logger
}

func (s LogSink) Notify(n Notice) {
	entry := s.logger().WithFields(log.Fields{
		"vehicle_id": n.VehicleID,
		"severity":   n.Severity,
	})
	switch n.Severity {
	case garage.SeverityError:
		entry.Error(n.Message)
	case garage.SeverityWarning:
		entry.Warn(n.Message)
	default:
		entry.Info(n.Message)
	}
}

func (s LogSink) Cue(vehicleID, cue string) {
	s.logger().WithFields(log.Fields{"vehicle_id": vehicleID, "cue": cue}).Debug("Playing cue")
}

func (s LogSink) Refresh(vehicleID string) {
	s.logger().WithField("vehicle_id", vehicleID).Debug("Refreshing selected vehicle")
}

// Recorder keeps the most recent notices in memory.
type Recorder struct {
	mu      sync.Mutex
	limit   int
	notices []Notice
}

// NewRecorder keeps at most limit notices (100 when limit <= 0).
func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = 100
	}
	return &Recorder{limit: limit}
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
	if over := len(r.notices) - r.limit; over > 0 {
		r.notices = append([]Notice(nil), r.notices[over:]...)
	}
}

func (r *Recorder) Cue(string, string) {}

func (r *Recorder) Refresh(string) {}

// Recent returns up to n notices, oldest first. n <= 0 returns all of them.
func (r *Recorder) Recent(n int) []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n <= 0 || n > len(r.notices) {
		n = len(r.notices)
	}
	out := make([]Notice, n)
	copy(out, r.notices[len(r.notices)-n:])
	return out
}
