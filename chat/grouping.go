package chat

import (
	"time"

	"ivar-client/models"
)

// DeriveGrouping reports, for each message of a newest-first sequence, whether
// it renders as a continuation of the message before it: same sender and
// immediately adjacent. A zero window is adjacency only; a positive window
// additionally requires the two timestamps to be at most window apart.
func DeriveGrouping(seq []models.Message, window time.Duration) []bool {
	out := make([]bool, len(seq))
	for i := 1; i < len(seq); i++ {
		if seq[i].Sender != seq[i-1].Sender {
			continue
		}
		if window > 0 && !withinWindow(seq[i-1], seq[i], window) {
			continue
		}
		out[i] = true
	}
	return out
}

func withinWindow(a, b models.Message, window time.Duration) bool {
	ta, tb := a.Time(), b.Time()
	if ta.IsZero() || tb.IsZero() {
		return false
	}
	gap := ta.Sub(tb)
	if gap < 0 {
		gap = -gap
	}
	return gap <= window
}

// FormatTimestamp renders an ISO-8601 timestamp as local clock time, e.g. "3:04 PM".
func FormatTimestamp(ts string) string {
	if ts == "" {
		return ""
	}
	t := models.Message{Timestamp: ts}.Time()
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("3:04 PM")
}
