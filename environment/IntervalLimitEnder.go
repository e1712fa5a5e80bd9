package environment

import (
	"sort"

	"github.com/samuelfneumann/pgtrain/timestep"
	"gonum.org/v1/gonum/spatial/r1"
)

// featureBound is the legal interval of one observation feature
type featureBound struct {
	feature int
	r1.Interval
}

// IntervalLimit is an Ender which ends an episode as soon as any
// tracked observation feature leaves its legal interval
type IntervalLimit struct {
	bounds  []featureBound
	endType timestep.EndType
}

// NewIntervalLimit returns an IntervalLimit tracking the observation
// features given as keys of bounds. Episodes it ends are marked with
// endType.
func NewIntervalLimit(bounds map[int]r1.Interval,
	endType timestep.EndType) *IntervalLimit {
	limit := &IntervalLimit{endType: endType}
	for feature, interval := range bounds {
		limit.bounds = append(limit.bounds, featureBound{feature, interval})
	}
	sort.Slice(limit.bounds, func(i, j int) bool {
		return limit.bounds[i].feature < limit.bounds[j].feature
	})
	return limit
}

// End reports whether t leaves a legal interval, in which case t is
// marked as the last step of the episode
func (l *IntervalLimit) End(t *timestep.TimeStep) bool {
	for _, b := range l.bounds {
		if v := t.Observation.AtVec(b.feature); v < b.Min || v > b.Max {
			t.StepType = timestep.Last
			t.SetEnd(l.endType)
			return true
		}
	}
	return false
}
