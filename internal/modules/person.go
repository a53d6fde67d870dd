package modules

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"epidash/pkg/models"
)

const maxBand = 80 // ages at or above collapse into "80+"

// PyramidBucket is one 5-year age band of the pyramid.
type PyramidBucket struct {
	Band   string `json:"band"` // "0-4" ... "80+"
	Male   int    `json:"male"`
	Female int    `json:"female"`
}

// Pyramid is the aggregate served to the person module.
type Pyramid struct {
	AgeVar  string          `json:"age_var"`
	SexVar  string          `json:"sex_var"`
	Buckets []PyramidBucket `json:"buckets"`
	Skipped int             `json:"skipped"` // unparseable age or unrecognized sex
}

// BuildPyramid buckets cases into 5-year age bands split by the two
// configured sex levels. Records whose age does not parse or whose sex
// matches neither level are counted as skipped, not dropped silently.
func BuildPyramid(ll *models.LineList, cfg models.PersonConfig) (*Pyramid, error) {
	if err := cfg.Validate(ll); err != nil {
		return nil, err
	}

	ages := ll.Values(cfg.AgeVar)
	sexes := ll.Values(cfg.SexVar)

	counts := make(map[int]*PyramidBucket)
	skipped := 0
	for i := range ages {
		age, err := parseAge(ages[i])
		if err != nil {
			skipped++
			continue
		}

		band := (age / 5) * 5
		if band > maxBand {
			band = maxBand
		}
		bucket, ok := counts[band]
		if !ok {
			bucket = &PyramidBucket{Band: bandLabel(band)}
			counts[band] = bucket
		}

		switch strings.TrimSpace(sexes[i]) {
		case cfg.MaleLevel:
			bucket.Male++
		case cfg.FemaleLevel:
			bucket.Female++
		default:
			skipped++
		}
	}

	buckets := make([]PyramidBucket, 0, (maxBand/5)+1)
	for band := 0; band <= maxBand; band += 5 {
		if b, ok := counts[band]; ok {
			buckets = append(buckets, *b)
		} else {
			buckets = append(buckets, PyramidBucket{Band: bandLabel(band)})
		}
	}

	return &Pyramid{
		AgeVar:  cfg.AgeVar,
		SexVar:  cfg.SexVar,
		Buckets: buckets,
		Skipped: skipped,
	}, nil
}

func parseAge(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("empty age")
	}
	if n, err := strconv.Atoi(raw); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative age %d", n)
		}
		return n, nil
	}
	// ages sometimes arrive as "34.0"; ParseFloat also accepts "nan"
	// and "inf", which are not ages
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, fmt.Errorf("unparseable age %q", raw)
	}
	return int(f), nil
}

func bandLabel(band int) string {
	if band >= maxBand {
		return fmt.Sprintf("%d+", maxBand)
	}
	return fmt.Sprintf("%d-%d", band, band+4)
}
