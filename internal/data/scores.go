package data

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// ScorePoint is one composite-score observation.
type ScorePoint struct {
	Date  time.Time `json:"date"`
	Score float64   `json:"score"`
}

// ScoreSeries is the externally computed composite regime score,
// strictly date-ordered with no duplicates.
type ScoreSeries struct {
	dates  []time.Time
	scores []float64
}

// NewScoreSeries validates ordering and builds the score series.
func NewScoreSeries(points []ScorePoint) (*ScoreSeries, error) {
	ss := &ScoreSeries{
		dates:  make([]time.Time, 0, len(points)),
		scores: make([]float64, 0, len(points)),
	}
	for i, p := range points {
		d := p.Date.UTC().Truncate(24 * time.Hour)
		if i > 0 && !d.After(ss.dates[i-1]) {
			return nil, fmt.Errorf("score series: date %s not strictly after %s",
				d.Format("2006-01-02"), ss.dates[i-1].Format("2006-01-02"))
		}
		ss.dates = append(ss.dates, d)
		ss.scores = append(ss.scores, p.Score)
	}
	return ss, nil
}

// Len returns the number of score observations.
func (ss *ScoreSeries) Len() int { return len(ss.dates) }

// Dates returns the ordered observation dates.
func (ss *ScoreSeries) Dates() []time.Time {
	out := make([]time.Time, len(ss.dates))
	copy(out, ss.dates)
	return out
}

// On returns the score recorded for exactly date. A stored NaN reads as
// neutral 0.0 so downstream classification never sees a NaN.
func (ss *ScoreSeries) On(date time.Time) (float64, bool) {
	d := date.UTC().Truncate(24 * time.Hour)
	i := sort.Search(len(ss.dates), func(i int) bool { return !ss.dates[i].Before(d) })
	if i >= len(ss.dates) || !ss.dates[i].Equal(d) {
		return 0, false
	}
	s := ss.scores[i]
	if math.IsNaN(s) {
		return 0, true
	}
	return s, true
}
