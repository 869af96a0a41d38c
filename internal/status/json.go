package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/ces-device/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	ID            string         `json:"id,omitempty"`
	Event         string         `json:"event,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	Powered       bool           `json:"powered"`
	Disabled      bool           `json:"disabled"`
	InTherapy     bool           `json:"in_therapy"`
	SkinContact   bool           `json:"skin_contact"`
	Recording     bool           `json:"recording"`
	Battery       BatteryJSON    `json:"battery"`
	Session       SessionJSON    `json:"session"`
	Inactivity    InactivityJSON `json:"inactivity"`
	RecordCount   int            `json:"record_count"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	StartTime     string         `json:"start_time"`
	Timestamp     string         `json:"timestamp"`
	MQTT          MQTTStatus     `json:"mqtt"`
	Config        ConfigJSON     `json:"config"`
}

// BatteryJSON reports charge and drain rate.
type BatteryJSON struct {
	Percent     int `json:"percent"`
	DrainPeriod int `json:"drain_period_s"`
}

// SessionJSON reports the therapy settings and countdown.
type SessionJSON struct {
	Waveform         string `json:"waveform"`
	Frequency        string `json:"frequency"`
	PowerLevel       int    `json:"power_level"`
	Remaining        string `json:"remaining"`
	RemainingSeconds int    `json:"remaining_seconds"`
	DurationSeconds  int    `json:"duration_seconds"`
	Running          bool   `json:"running"`
	StartedAt        string `json:"started_at,omitempty"`
}

// InactivityJSON reports the auto power-off counter.
type InactivityJSON struct {
	Seconds      int  `json:"seconds"`
	GracePending bool `json:"grace_pending"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	TickMs      int64  `json:"tick_ms"`
	GraceMs     int64  `json:"grace_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
}

// RecordJSON is the JSON representation of a saved therapy record.
type RecordJSON struct {
	ID         int    `json:"id"`
	StartedAt  string `json:"started_at"`
	Duration   string `json:"duration"`
	Seconds    int    `json:"seconds"`
	Waveform   string `json:"waveform"`
	Frequency  string `json:"frequency"`
	PowerLevel int    `json:"power_level"`
	Text       string `json:"text"`
}

// RecordsJSON is the envelope for the record list.
type RecordsJSON struct {
	Records []RecordJSON `json:"records"`
}

func buildInner(snap Snapshot) StatusInner {
	d := snap.Device
	inner := StatusInner{
		Powered:     d.Powered,
		Disabled:    d.Disabled,
		InTherapy:   d.InTherapy,
		SkinContact: d.SkinContact,
		Recording:   d.Recording,
		Battery:     BatteryJSON{Percent: d.Battery, DrainPeriod: d.DrainPeriod},
		Session: SessionJSON{
			Waveform:         d.Waveform.String(),
			Frequency:        d.Frequency.String(),
			PowerLevel:       d.PowerLevel,
			Remaining:        logic.FormatCountdown(d.Remaining),
			RemainingSeconds: d.Remaining,
			DurationSeconds:  d.LastDuration,
			Running:          d.Running,
		},
		Inactivity:    InactivityJSON{Seconds: d.InactiveSeconds, GracePending: d.GracePending},
		RecordCount:   d.RecordCount,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			TickMs:      snap.Config.TickMs,
			GraceMs:     snap.Config.GraceMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}
	if d.InTherapy {
		inner.Session.StartedAt = d.StartedAt.UTC().Format(time.RFC3339)
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, id, event, reason string) []byte {
	inner := buildInner(snap)
	inner.ID = id
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

// NewRecordJSON converts a record for JSON output.
func NewRecordJSON(r logic.Record) RecordJSON {
	return RecordJSON{
		ID:         r.ID,
		StartedAt:  r.StartedAt.UTC().Format(time.RFC3339),
		Duration:   logic.FormatCountdown(r.Elapsed),
		Seconds:    r.Elapsed,
		Waveform:   r.Waveform.String(),
		Frequency:  r.Frequency.String(),
		PowerLevel: r.PowerLevel,
		Text:       r.String(),
	}
}

// FormatRecords returns the record list, newest first.
func FormatRecords(records []logic.Record) []byte {
	out := RecordsJSON{Records: make([]RecordJSON, 0, len(records))}
	for _, r := range records {
		out.Records = append(out.Records, NewRecordJSON(r))
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	return data
}
