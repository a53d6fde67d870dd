package models

import (
	"fmt"
	"strings"
)

// ModuleKind identifies one of the three dashboard modules.
type ModuleKind string

const (
	ModulePlace  ModuleKind = "place"
	ModuleTime   ModuleKind = "time"
	ModulePerson ModuleKind = "person"
)

// GroupingVariable is a (label, column) pair offered as a selectable
// stratification axis in a module.
type GroupingVariable struct {
	Label  string `json:"label"`
	Column string `json:"column"`
}

// ModuleConfig is the per-module configuration payload. Each module
// kind carries its own strongly-typed config so that required fields
// are checked per variant instead of through one loose bundle.
type ModuleConfig interface {
	Kind() ModuleKind

	// Validate checks that every column the config references exists
	// in the line list. It runs before a session starts, so a bad
	// config aborts the launch instead of failing mid-render.
	Validate(ll *LineList) error
}

// PlaceConfig configures the choropleth module.
type PlaceConfig struct {
	Layers    []GeoLayer         `json:"layers"`
	GroupVars []GroupingVariable `json:"group_vars,omitempty"`
}

func (c PlaceConfig) Kind() ModuleKind { return ModulePlace }

func (c PlaceConfig) Validate(ll *LineList) error {
	if len(c.Layers) == 0 {
		return fmt.Errorf("place: at least one geo layer required")
	}
	for _, layer := range c.Layers {
		if len(layer.JoinBy) == 0 {
			return fmt.Errorf("place: layer %q has no join_by mapping", layer.Name)
		}
		for attr, col := range layer.JoinBy {
			if !layer.HasAttribute(attr) {
				return fmt.Errorf("place: layer %q has no geometry attribute %q", layer.Name, attr)
			}
			if !ll.HasColumn(col) {
				return fmt.Errorf("place: layer %q joins on column %q not found in line list", layer.Name, col)
			}
		}
	}
	return validateGroupVars("place", ll, c.GroupVars)
}

// TimeConfig configures the epidemic curve module.
type TimeConfig struct {
	DateVars  []string           `json:"date_vars"`
	GroupVars []GroupingVariable `json:"group_vars,omitempty"`
}

func (c TimeConfig) Kind() ModuleKind { return ModuleTime }

func (c TimeConfig) Validate(ll *LineList) error {
	if len(c.DateVars) == 0 {
		return fmt.Errorf("time: at least one date column required")
	}
	if err := ll.RequireColumns(c.DateVars...); err != nil {
		return fmt.Errorf("time: %w", err)
	}
	return validateGroupVars("time", ll, c.GroupVars)
}

// PersonConfig configures the age/sex pyramid module. MaleLevel and
// FemaleLevel are the literal values encoding the two sexes in SexVar.
type PersonConfig struct {
	AgeVar      string `json:"age_var"`
	SexVar      string `json:"sex_var"`
	MaleLevel   string `json:"male_level"`
	FemaleLevel string `json:"female_level"`
}

func (c PersonConfig) Kind() ModuleKind { return ModulePerson }

func (c PersonConfig) Validate(ll *LineList) error {
	if c.AgeVar == "" || c.SexVar == "" {
		return fmt.Errorf("person: age and sex columns required")
	}
	if strings.TrimSpace(c.MaleLevel) == "" || strings.TrimSpace(c.FemaleLevel) == "" {
		return fmt.Errorf("person: male and female level values required")
	}
	if err := ll.RequireColumns(c.AgeVar, c.SexVar); err != nil {
		return fmt.Errorf("person: %w", err)
	}
	levels := ll.Levels(c.SexVar)
	if !containsLevel(levels, c.MaleLevel) {
		return fmt.Errorf("person: male level %q not present in column %q", c.MaleLevel, c.SexVar)
	}
	if !containsLevel(levels, c.FemaleLevel) {
		return fmt.Errorf("person: female level %q not present in column %q", c.FemaleLevel, c.SexVar)
	}
	return nil
}

func validateGroupVars(module string, ll *LineList, vars []GroupingVariable) error {
	for _, gv := range vars {
		if gv.Column == "" {
			return fmt.Errorf("%s: grouping variable %q has no column", module, gv.Label)
		}
		if !ll.HasColumn(gv.Column) {
			return fmt.Errorf("%s: grouping column %q not found in line list", module, gv.Column)
		}
	}
	return nil
}

func containsLevel(levels []string, v string) bool {
	for _, l := range levels {
		if l == v {
			return true
		}
	}
	return false
}
