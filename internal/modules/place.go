package modules

import (
	"fmt"
	"sort"
	"strings"

	"epidash/pkg/models"
)

// RegionCount is the case count joined onto one boundary feature,
// optionally broken down by the active grouping variable.
type RegionCount struct {
	Region string         `json:"region"`
	Count  int            `json:"count"`
	Groups map[string]int `json:"groups,omitempty"` // per-stratum counts
}

// Choropleth is the aggregate served to the place module for one
// layer. Line list values with no matching feature are reported under
// Unmatched rather than dropped — the viewer decides what to do with
// them.
type Choropleth struct {
	Layer      string         `json:"layer"`
	JoinColumn string         `json:"join_column"`
	GroupVar   string         `json:"group_var,omitempty"`
	Regions    []RegionCount  `json:"regions"`
	Unmatched  map[string]int `json:"unmatched,omitempty"`
	Matched    int            `json:"matched"`
}

// BuildChoropleth joins case counts to the named layer's features via
// that layer's join mapping, optionally stratified by a grouping
// column. A join that matches zero records is a configuration error:
// it means the names never lined up.
func BuildChoropleth(ll *models.LineList, cfg models.PlaceConfig, layerName, groupVar string) (*Choropleth, error) {
	layer, err := findLayer(cfg.Layers, layerName)
	if err != nil {
		return nil, err
	}
	if groupVar != "" && !hasGroupVar(cfg.GroupVars, groupVar) {
		return nil, fmt.Errorf("place: %q is not a configured grouping variable", groupVar)
	}

	attr, col, err := joinPair(*layer)
	if err != nil {
		return nil, err
	}
	if !ll.HasColumn(col) {
		return nil, fmt.Errorf("place: join column %q not found in line list", col)
	}
	if !layer.HasAttribute(attr) {
		return nil, fmt.Errorf("place: layer %q has no geometry attribute %q", layer.Name, attr)
	}

	// region set from the geometry side
	byRegion := make(map[string]*RegionCount)
	order := make([]string, 0, len(layer.Features))
	for _, f := range layer.Features {
		name := strings.TrimSpace(f.Attrs[attr])
		if name == "" {
			continue
		}
		if _, seen := byRegion[name]; seen {
			continue
		}
		order = append(order, name)
		rc := &RegionCount{Region: name}
		if groupVar != "" {
			rc.Groups = make(map[string]int)
		}
		byRegion[name] = rc
	}

	vals := ll.Values(col)
	var groups []string
	if groupVar != "" {
		groups = ll.Values(groupVar)
	}

	matched := 0
	unmatched := make(map[string]int)
	for i, v := range vals {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		rc, ok := byRegion[v]
		if !ok {
			unmatched[v]++
			continue
		}
		rc.Count++
		matched++
		if groupVar != "" {
			g := strings.TrimSpace(groups[i])
			if g == "" {
				g = "(missing)"
			}
			rc.Groups[g]++
		}
	}

	if matched == 0 && ll.Len() > 0 {
		return nil, fmt.Errorf("place: no line list value in column %q matches layer %q attribute %q", col, layer.Name, attr)
	}

	sort.Strings(order)
	regions := make([]RegionCount, 0, len(order))
	for _, name := range order {
		regions = append(regions, *byRegion[name])
	}

	out := &Choropleth{
		Layer:      layer.Name,
		JoinColumn: col,
		GroupVar:   groupVar,
		Regions:    regions,
		Matched:    matched,
	}
	if len(unmatched) > 0 {
		out.Unmatched = unmatched
	}
	return out, nil
}

func findLayer(layers []models.GeoLayer, name string) (*models.GeoLayer, error) {
	for i := range layers {
		if layers[i].Name == name {
			return &layers[i], nil
		}
	}
	return nil, fmt.Errorf("place: unknown layer %q", name)
}

// joinPair extracts the single attribute→column pair of a layer's
// join mapping.
func joinPair(layer models.GeoLayer) (attr, col string, err error) {
	if len(layer.JoinBy) == 0 {
		return "", "", fmt.Errorf("place: layer %q has no join_by mapping", layer.Name)
	}
	if len(layer.JoinBy) > 1 {
		return "", "", fmt.Errorf("place: layer %q has more than one join_by pair", layer.Name)
	}
	for a, c := range layer.JoinBy {
		attr, col = a, c
	}
	return attr, col, nil
}
