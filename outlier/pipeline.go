package outlier

import (
	"fmt"
	"math"
	"sort"
)

// Entity is one subject of analysis: a provider, a procedure code, a
// billing/servicing pair or a state.
type Entity struct {
	ID       string
	Measures map[string]float64
	Tags     map[string]string
}

// Measure returns the named measure. Missing and non-finite values are
// reported as absent.
func (e Entity) Measure(key string) (float64, bool) {
	v, ok := e.Measures[key]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Narrator produces the analysis sentence attached to a scored entity.
type Narrator interface {
	Narrate(in NarrativeInput) (string, error)
}

// NarrativeInput is everything a Narrator may look at.
type NarrativeInput struct {
	Entity     Entity
	Value      float64
	ZScore     float64
	Defined    bool
	Bucket     Bucket
	Population Summary
}

// Config describes one analysis.
type Config struct {
	Name string
	// Include decides whether an entity belongs to the statistics
	// population. Nil includes every entity that has the measure.
	Include    func(Entity) bool
	MeasureKey string
	Thresholds Thresholds
	Profile    Profile
	Narrator   Narrator
}

// Scored is one qualifying entity with its z-score. ZScore is rounded to
// two decimals and nil when undefined.
type Scored struct {
	ID       string            `json:"id"`
	Value    float64           `json:"value"`
	ZScore   *float64          `json:"zScore"`
	Tags     map[string]string `json:"tags,omitempty"`
	Analysis string            `json:"analysis,omitempty"`

	z       float64
	defined bool
	bucket  Bucket
}

// Z returns the full precision z-score.
func (s Scored) Z() (float64, bool) { return s.z, s.defined }

// Bucket returns the classification of the entity.
func (s Scored) Bucket() Bucket { return s.bucket }

// Flagged is a scored entity that crossed a threshold.
type Flagged struct {
	Scored
	Analogy Analogy `json:"analogy"`
}

// ReportSummary holds the counts of a report.
type ReportSummary struct {
	TotalEntities int `json:"totalEntities"`
	HighCount     int `json:"highCount"`
	LowCount      int `json:"lowCount"`
	ExcludedCount int `json:"excludedCount"`
}

// Report is the result of Analyze.
//
// AllScored is ordered by z-score descending (full precision), entities
// without a z-score last, ties in input order. HighOutliers and LowOutliers
// are filtered views of AllScored and keep that order.
type Report struct {
	Name         string        `json:"name"`
	Measure      string        `json:"measure"`
	Threshold    string        `json:"threshold"`
	Population   Summary       `json:"population"`
	AllScored    []Scored      `json:"allScored"`
	HighOutliers []Flagged     `json:"highOutliers"`
	LowOutliers  []Flagged     `json:"lowOutliers"`
	Excluded     []string      `json:"excluded"`
	Summary      ReportSummary `json:"summary"`
}

// Analyze scores entities on cfg.MeasureKey and classifies them.
//
// Entities rejected by cfg.Include or lacking the measure are excluded from
// the statistics and listed in Excluded. An empty population yields a
// well-formed report with zero counts.
func Analyze(entities []Entity, cfg Config) Report {
	report := Report{
		Name:         cfg.Name,
		Measure:      cfg.MeasureKey,
		Threshold:    cfg.Thresholds.String(),
		AllScored:    []Scored{},
		HighOutliers: []Flagged{},
		LowOutliers:  []Flagged{},
		Excluded:     []string{},
	}

	qualifying, values := partition(entities, cfg.MeasureKey, cfg.Include, &report.Excluded)
	report.Summary.ExcludedCount = len(report.Excluded)

	stats, err := Summarize(values)
	if err != nil {
		return report
	}
	report.Population = Summary{
		Mean:   Round2(stats.Mean),
		StdDev: Round2(stats.StdDev),
		Count:  stats.Count,
	}

	scored := make([]Scored, len(qualifying))
	for i, e := range qualifying {
		s := Scored{ID: e.ID, Value: values[i], Tags: e.Tags}
		if z, ok := ZScore(values[i], stats); ok {
			rounded := Round2(z)
			s.z, s.defined, s.ZScore = z, true, &rounded
			s.bucket = cfg.Thresholds.Classify(z)
		}
		if cfg.Narrator != nil {
			s.Analysis = narrate(cfg.Narrator, NarrativeInput{
				Entity:     e,
				Value:      values[i],
				ZScore:     s.z,
				Defined:    s.defined,
				Bucket:     s.bucket,
				Population: stats,
			})
		}
		scored[i] = s
	}
	sortScored(scored)

	for _, s := range scored {
		switch s.bucket {
		case BucketHigh:
			report.HighOutliers = append(report.HighOutliers, Flagged{Scored: s, Analogy: AnalogyFor(cfg.Profile, s.z)})
		case BucketLow:
			report.LowOutliers = append(report.LowOutliers, Flagged{Scored: s, Analogy: AnalogyFor(cfg.Profile, s.z)})
		}
	}

	report.AllScored = scored
	report.Summary.TotalEntities = len(scored)
	report.Summary.HighCount = len(report.HighOutliers)
	report.Summary.LowCount = len(report.LowOutliers)
	return report
}

// ScoreMeasure computes full precision z-scores of a secondary measure,
// keyed by entity id. Entities without a defined z-score are absent.
func ScoreMeasure(entities []Entity, key string, include func(Entity) bool) (map[string]float64, Summary) {
	var excluded []string
	qualifying, values := partition(entities, key, include, &excluded)

	scores := make(map[string]float64, len(qualifying))
	stats, err := Summarize(values)
	if err != nil {
		return scores, Summary{}
	}
	for i, e := range qualifying {
		if z, ok := ZScore(values[i], stats); ok {
			scores[e.ID] = z
		}
	}
	return scores, stats
}

func partition(entities []Entity, key string, include func(Entity) bool, excluded *[]string) ([]Entity, []float64) {
	qualifying := make([]Entity, 0, len(entities))
	values := make([]float64, 0, len(entities))
	for _, e := range entities {
		v, ok := e.Measure(key)
		if !ok || (include != nil && !include(e)) {
			*excluded = append(*excluded, e.ID)
			continue
		}
		qualifying = append(qualifying, e)
		values = append(values, v)
	}
	return qualifying, values
}

func sortScored(scored []Scored) {
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.defined != b.defined {
			return a.defined
		}
		return a.defined && a.z > b.z
	})
}

func narrate(n Narrator, in NarrativeInput) (text string) {
	defer func() {
		if recover() != nil {
			text = FallbackNarrative(in)
		}
	}()

	text, err := n.Narrate(in)
	if err != nil || text == "" {
		return FallbackNarrative(in)
	}
	return text
}

// FallbackNarrative is the generic sentence used when no narrative rule
// applies or a narrator fails.
func FallbackNarrative(in NarrativeInput) string {
	mean := in.Population.Mean
	if mean == 0 {
		return fmt.Sprintf("Value is %.0f.", in.Value)
	}
	pct := math.Abs((in.Value - mean) / mean * 100)
	direction := "below"
	if in.Value > mean {
		direction = "above"
	}
	return fmt.Sprintf("Value is %.0f%% %s the average of %.0f.", pct, direction, mean)
}
