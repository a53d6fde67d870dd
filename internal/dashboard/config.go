package dashboard

import (
	"encoding/json"
	"fmt"
	"os"

	"epidash/pkg/models"
)

// Config is the declarative dashboard configuration loaded by
// cmd/dashboard-server: which dataset to serve and how each module is
// wired to its columns. Layers are referenced by their cached id in
// the geo store.
type Config struct {
	Dataset string `json:"dataset,omitempty"` // dataset id; empty = latest import

	Place  *PlaceSection        `json:"place,omitempty"`
	Time   *TimeSection         `json:"time,omitempty"`
	Person *models.PersonConfig `json:"person,omitempty"`
}

type PlaceSection struct {
	LayerIDs  []string                  `json:"layers"` // geo store ids
	GroupVars []models.GroupingVariable `json:"group_vars,omitempty"`
}

type TimeSection struct {
	DateVars  []string                  `json:"date_vars"`
	GroupVars []models.GroupingVariable `json:"group_vars,omitempty"`
}

// LoadConfig reads and validates a JSON dashboard config file.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Place == nil && c.Time == nil && c.Person == nil {
		return fmt.Errorf("no modules configured")
	}
	if c.Place != nil && len(c.Place.LayerIDs) == 0 {
		return fmt.Errorf("place: layers is required")
	}
	if c.Time != nil && len(c.Time.DateVars) == 0 {
		return fmt.Errorf("time: date_vars is required")
	}
	if c.Person != nil {
		p := c.Person
		if p.AgeVar == "" || p.SexVar == "" || p.MaleLevel == "" || p.FemaleLevel == "" {
			return fmt.Errorf("person: age_var, sex_var, male_level and female_level are required")
		}
	}
	return nil
}
