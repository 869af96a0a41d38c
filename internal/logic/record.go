package logic

import (
	"fmt"
	"time"
)

// RecordTimeLayout is the layout of the bracketed start timestamp.
const RecordTimeLayout = "2006-01-02 15:04:05"

// Record is a saved therapy result.
type Record struct {
	ID         int
	StartedAt  time.Time
	Elapsed    int // seconds
	Waveform   Waveform
	Frequency  Frequency
	PowerLevel int
}

// String renders the record as a log line.
func (r Record) String() string {
	return fmt.Sprintf("[%s] ID: %d, Duration: %s, Waveform: %s, Freq: %s, Powerlevel: %d",
		r.StartedAt.Format(RecordTimeLayout), r.ID, FormatCountdown(r.Elapsed), r.Waveform, r.Frequency, r.PowerLevel)
}

// FormatCountdown renders seconds as mm:ss. Minutes are not wrapped into
// hours, so a full 60 minute session reads "60:00".
func FormatCountdown(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
