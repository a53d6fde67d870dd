package modules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epidash/pkg/models"
)

func pyramidLineList() *models.LineList {
	return models.NewLineList(
		[]string{"age", "sex"},
		[][]string{
			{"3", "m"},
			{"34.0", "f"},
			{"82", "m"},
			{"95", "f"},
			{"x", "m"},  // bad age
			{"20", "?"}, // unrecognized sex
		},
	)
}

func pyramidConfig() models.PersonConfig {
	return models.PersonConfig{AgeVar: "age", SexVar: "sex", MaleLevel: "m", FemaleLevel: "f"}
}

func TestBuildPyramid(t *testing.T) {
	p, err := BuildPyramid(pyramidLineList(), pyramidConfig())
	require.NoError(t, err)

	// every 5-year band from 0-4 through 80+ is present, even if empty
	require.Len(t, p.Buckets, 17)
	assert.Equal(t, "0-4", p.Buckets[0].Band)
	assert.Equal(t, "80+", p.Buckets[16].Band)

	byBand := make(map[string]PyramidBucket)
	for _, b := range p.Buckets {
		byBand[b.Band] = b
	}

	assert.Equal(t, 1, byBand["0-4"].Male)
	assert.Equal(t, 1, byBand["30-34"].Female)

	// ages at or above 80 collapse into the open-ended band
	assert.Equal(t, 1, byBand["80+"].Male)
	assert.Equal(t, 1, byBand["80+"].Female)

	// one bad age, one unrecognized sex
	assert.Equal(t, 2, p.Skipped)
}

func TestBuildPyramidRejectsMissingLevels(t *testing.T) {
	cfg := pyramidConfig()
	cfg.MaleLevel = "male"

	_, err := BuildPyramid(pyramidLineList(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "male")
}

func TestBuildPyramidRejectsMissingColumns(t *testing.T) {
	cfg := pyramidConfig()
	cfg.AgeVar = "years"

	_, err := BuildPyramid(pyramidLineList(), cfg)
	assert.Error(t, err)
}

func TestParseAge(t *testing.T) {
	n, err := parseAge("34")
	require.NoError(t, err)
	assert.Equal(t, 34, n)

	n, err = parseAge(" 34.0 ")
	require.NoError(t, err)
	assert.Equal(t, 34, n)

	// ParseFloat tolerates these; ages must not
	for _, raw := range []string{"", "-1", "-1.5", "unknown", "nan", "NaN", "inf", "+Inf", "-inf"} {
		_, err := parseAge(raw)
		assert.Error(t, err, raw)
	}
}

func TestBuildPyramidSkipsNonFiniteAges(t *testing.T) {
	ll := models.NewLineList(
		[]string{"age", "sex"},
		[][]string{
			{"12", "m"},
			{"nan", "f"},
			{"inf", "m"},
		},
	)

	p, err := BuildPyramid(ll, pyramidConfig())
	require.NoError(t, err)
	assert.Equal(t, 2, p.Skipped)

	total := 0
	for _, b := range p.Buckets {
		total += b.Male + b.Female
	}
	assert.Equal(t, 1, total)
}
