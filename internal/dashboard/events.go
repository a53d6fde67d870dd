package dashboard

import "time"

const (
	EventSessionStarted        = "session.started"
	EventLayerSwitched         = "session.layer_switched"
	EventStratificationChanged = "session.stratification_changed"
	EventIntervalChanged       = "session.interval_changed"
	EventDatasetImported       = "session.dataset_imported"
)

// SessionEvent is broadcast to every connected viewer (websocket and
// TCP) whenever the shared view state changes, so all open dashboards
// stay in sync.
type SessionEvent struct {
	Type     string    `json:"type"`
	Module   string    `json:"module,omitempty"`
	Layer    string    `json:"layer,omitempty"`
	GroupVar string    `json:"group_var,omitempty"`
	Interval string    `json:"interval,omitempty"`
	Dataset  string    `json:"dataset,omitempty"`
	RowCount int       `json:"row_count,omitempty"`
	At       time.Time `json:"at"`
}
