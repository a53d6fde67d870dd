package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func moduleLineList() *LineList {
	return NewLineList(
		[]string{"district", "onset_date", "age", "sex"},
		[][]string{
			{"Bo", "2024-03-01", "34", "m"},
			{"Kenema", "2024-03-02", "8", "f"},
		},
	)
}

func testLayer() GeoLayer {
	return GeoLayer{
		ID:      "sle-adm2",
		Name:    "District",
		NameVar: "admin2",
		JoinBy:  map[string]string{"admin2": "district"},
		Features: []Feature{
			{Attrs: map[string]string{"admin2": "Bo"}},
			{Attrs: map[string]string{"admin2": "Kenema"}},
		},
	}
}

func TestPlaceConfigValidate(t *testing.T) {
	ll := moduleLineList()

	cfg := PlaceConfig{Layers: []GeoLayer{testLayer()}}
	require.NoError(t, cfg.Validate(ll))
	assert.Equal(t, ModulePlace, cfg.Kind())

	assert.Error(t, PlaceConfig{}.Validate(ll), "no layers")

	noJoin := testLayer()
	noJoin.JoinBy = nil
	assert.Error(t, PlaceConfig{Layers: []GeoLayer{noJoin}}.Validate(ll))

	badAttr := testLayer()
	badAttr.JoinBy = map[string]string{"admin3": "district"}
	assert.Error(t, PlaceConfig{Layers: []GeoLayer{badAttr}}.Validate(ll))

	badCol := testLayer()
	badCol.JoinBy = map[string]string{"admin2": "region"}
	assert.Error(t, PlaceConfig{Layers: []GeoLayer{badCol}}.Validate(ll))
}

func TestTimeConfigValidate(t *testing.T) {
	ll := moduleLineList()

	cfg := TimeConfig{
		DateVars:  []string{"onset_date"},
		GroupVars: []GroupingVariable{{Label: "Sex", Column: "sex"}},
	}
	require.NoError(t, cfg.Validate(ll))
	assert.Equal(t, ModuleTime, cfg.Kind())

	assert.Error(t, TimeConfig{}.Validate(ll), "no date vars")
	assert.Error(t, TimeConfig{DateVars: []string{"report_date"}}.Validate(ll))
	assert.Error(t, TimeConfig{
		DateVars:  []string{"onset_date"},
		GroupVars: []GroupingVariable{{Label: "Outcome", Column: "outcome"}},
	}.Validate(ll))
}

func TestPersonConfigValidate(t *testing.T) {
	ll := moduleLineList()

	cfg := PersonConfig{AgeVar: "age", SexVar: "sex", MaleLevel: "m", FemaleLevel: "f"}
	require.NoError(t, cfg.Validate(ll))
	assert.Equal(t, ModulePerson, cfg.Kind())

	assert.Error(t, PersonConfig{SexVar: "sex", MaleLevel: "m", FemaleLevel: "f"}.Validate(ll))
	assert.Error(t, PersonConfig{AgeVar: "age", SexVar: "sex", FemaleLevel: "f"}.Validate(ll))
	assert.Error(t, PersonConfig{AgeVar: "years", SexVar: "sex", MaleLevel: "m", FemaleLevel: "f"}.Validate(ll))

	// configured levels must actually occur in the data
	err := PersonConfig{AgeVar: "age", SexVar: "sex", MaleLevel: "male", FemaleLevel: "f"}.Validate(ll)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "male")
}

func TestGeoLayerAttributes(t *testing.T) {
	layer := testLayer()

	assert.True(t, layer.HasAttribute("admin2"))
	assert.False(t, layer.HasAttribute("admin3"))
	assert.Equal(t, []string{"Bo", "Kenema"}, layer.AttributeValues("admin2"))
}
