package dashboard

import (
	"fmt"
	"sync"

	"epidash/internal/modules"
	"epidash/pkg/models"
)

// Session holds the immutable line list plus the shared, mutable view
// state of a running dashboard: which layer, stratification and
// interval are active. Switching any of these swaps view state only —
// the line list is loaded once per session and never reloaded.
type Session struct {
	mu   sync.Mutex
	data *models.LineList

	place  *models.PlaceConfig
	time   *models.TimeConfig
	person *models.PersonConfig

	activeLayer   string // layer name
	placeGroup    string // column, "" = plain counts
	activeDateVar string
	activeGroup   string // column, "" = no stratification
	interval      modules.Interval
}

func NewSession(data *models.LineList) *Session {
	return &Session{
		data:     data,
		interval: modules.IntervalDay,
	}
}

// Data returns the session's line list.
func (s *Session) Data() *models.LineList { return s.data }

// Enable validates a module config against the line list and attaches
// it. A validation error leaves the session unchanged, so a bad config
// aborts a launch before anything is served.
func (s *Session) Enable(cfg models.ModuleConfig) error {
	if err := cfg.Validate(s.data); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch c := cfg.(type) {
	case models.PlaceConfig:
		s.place = &c
		s.activeLayer = c.Layers[0].Name
	case models.TimeConfig:
		if err := modules.ValidateDates(s.data, c); err != nil {
			return err
		}
		s.time = &c
		s.activeDateVar = c.DateVars[0]
	case models.PersonConfig:
		s.person = &c
	default:
		return fmt.Errorf("unsupported module config %T", cfg)
	}
	return nil
}

// Enabled lists the module kinds attached to this session.
func (s *Session) Enabled() []models.ModuleKind {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kinds []models.ModuleKind
	if s.place != nil {
		kinds = append(kinds, models.ModulePlace)
	}
	if s.time != nil {
		kinds = append(kinds, models.ModuleTime)
	}
	if s.person != nil {
		kinds = append(kinds, models.ModulePerson)
	}
	return kinds
}

// SwitchLayer makes another configured layer the active one and
// returns it. The line list is untouched.
func (s *Session) SwitchLayer(name string) (*models.GeoLayer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.place == nil {
		return nil, fmt.Errorf("place module not enabled")
	}
	for i := range s.place.Layers {
		if s.place.Layers[i].Name == name {
			s.activeLayer = name
			return &s.place.Layers[i], nil
		}
	}
	return nil, fmt.Errorf("unknown layer %q", name)
}

// Place joins the line list onto the active layer, stratified by the
// active place grouping variable when one is selected.
func (s *Session) Place() (*modules.Choropleth, error) {
	s.mu.Lock()
	if s.place == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("place module not enabled")
	}
	cfg := *s.place
	layer := s.activeLayer
	group := s.placeGroup
	s.mu.Unlock()

	return modules.BuildChoropleth(s.data, cfg, layer, group)
}

// SetPlaceStratification selects the grouping column that breaks down
// each region's count ("" clears it).
func (s *Session) SetPlaceStratification(column string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.place == nil {
		return fmt.Errorf("place module not enabled")
	}
	if column != "" {
		found := false
		for _, gv := range s.place.GroupVars {
			if gv.Column == column {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown grouping variable %q", column)
		}
	}
	s.placeGroup = column
	return nil
}

// SetStratification selects the active grouping column ("" clears it).
func (s *Session) SetStratification(column string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.time == nil {
		return fmt.Errorf("time module not enabled")
	}
	if column != "" {
		found := false
		for _, gv := range s.time.GroupVars {
			if gv.Column == column {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown grouping variable %q", column)
		}
	}
	s.activeGroup = column
	return nil
}

// SetInterval selects the epicurve binning resolution.
func (s *Session) SetInterval(interval modules.Interval) error {
	switch interval {
	case modules.IntervalDay, modules.IntervalWeek, modules.IntervalMonth:
	default:
		return fmt.Errorf("unsupported interval %q", interval)
	}
	s.mu.Lock()
	s.interval = interval
	s.mu.Unlock()
	return nil
}

// SetDateVar selects which configured date column drives the epicurve.
func (s *Session) SetDateVar(column string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.time == nil {
		return fmt.Errorf("time module not enabled")
	}
	for _, dv := range s.time.DateVars {
		if dv == column {
			s.activeDateVar = column
			return nil
		}
	}
	return fmt.Errorf("unknown date column %q", column)
}

// Epicurve builds the time aggregate from the current view state.
func (s *Session) Epicurve() (*modules.Epicurve, error) {
	s.mu.Lock()
	if s.time == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("time module not enabled")
	}
	cfg := *s.time
	dateVar := s.activeDateVar
	interval := s.interval
	group := s.activeGroup
	s.mu.Unlock()

	return modules.BuildEpicurve(s.data, cfg, dateVar, interval, group)
}

// Pyramid builds the person aggregate.
func (s *Session) Pyramid() (*modules.Pyramid, error) {
	s.mu.Lock()
	if s.person == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("person module not enabled")
	}
	cfg := *s.person
	s.mu.Unlock()

	return modules.BuildPyramid(s.data, cfg)
}

// View is the snapshot served by GET /session: what is enabled, what
// can be selected, and what is currently active.
type View struct {
	Modules          []models.ModuleKind       `json:"modules"`
	RowCount         int                       `json:"row_count"`
	Layers           []string                  `json:"layers,omitempty"`
	ActiveLayer      string                    `json:"active_layer,omitempty"`
	PlaceGroupVars   []models.GroupingVariable `json:"place_group_vars,omitempty"`
	ActivePlaceGroup string                    `json:"active_place_group,omitempty"`
	DateVars         []string                  `json:"date_vars,omitempty"`
	ActiveDate       string                    `json:"active_date_var,omitempty"`
	GroupVars        []models.GroupingVariable `json:"group_vars,omitempty"`
	ActiveGroup      string                    `json:"active_group,omitempty"`
	Interval         modules.Interval          `json:"interval,omitempty"`
}

func (s *Session) Snapshot() View {
	enabled := s.Enabled()

	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		Modules:  enabled,
		RowCount: s.data.Len(),
	}
	if s.place != nil {
		for _, l := range s.place.Layers {
			v.Layers = append(v.Layers, l.Name)
		}
		v.ActiveLayer = s.activeLayer
		v.PlaceGroupVars = s.place.GroupVars
		v.ActivePlaceGroup = s.placeGroup
	}
	if s.time != nil {
		v.DateVars = s.time.DateVars
		v.ActiveDate = s.activeDateVar
		v.GroupVars = s.time.GroupVars
		v.ActiveGroup = s.activeGroup
		v.Interval = s.interval
	}
	return v
}
