// Package narrative renders the short analysis sentences attached to scored
// entities from a declarative rule table.
package narrative

import (
	"bytes"
	_ "embed"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/COG-GTM/devin-hhs/outlier"
)

//go:embed rules.yaml
var defaultRules []byte

// When is the predicate of a rule. Empty fields always match.
type When struct {
	Bucket string   `yaml:"bucket"`
	Tag    string   `yaml:"tag"`
	In     []string `yaml:"in"`
	Above  *float64 `yaml:"above"`
}

// Rule pairs a predicate with a sentence template.
type Rule struct {
	When When   `yaml:"when"`
	Text string `yaml:"text"`

	tmpl *template.Template
}

// Group is an ordered list of rules; the first match wins.
type Group struct {
	Name  string `yaml:"name"`
	Rules []Rule `yaml:"rules"`
}

// Rules is a parsed rule table. It is immutable after Parse and safe for
// concurrent use.
type Rules struct {
	Fallback string  `yaml:"fallback"`
	Groups   []Group `yaml:"groups"`

	fallback *template.Template
}

// Data is what templates see.
type Data struct {
	ID          string
	Tags        map[string]string
	Value       float64
	ZScore      float64
	Mean        string
	PctFromMean string
	Direction   string
}

// Default returns the built-in state rule table.
func Default() (*Rules, error) {
	return Parse(defaultRules)
}

// Parse decodes a YAML rule table and compiles its templates.
func Parse(data []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse narrative rules: %w", err)
	}
	if r.Fallback == "" {
		return nil, fmt.Errorf("parse narrative rules: missing fallback template")
	}

	var err error
	if r.fallback, err = template.New("fallback").Parse(r.Fallback); err != nil {
		return nil, fmt.Errorf("compile fallback template: %w", err)
	}
	for gi := range r.Groups {
		g := &r.Groups[gi]
		for ri := range g.Rules {
			rule := &g.Rules[ri]
			switch rule.When.Bucket {
			case "", "high", "low":
			default:
				return nil, fmt.Errorf("group %s rule %d: unknown bucket %q", g.Name, ri, rule.When.Bucket)
			}
			name := fmt.Sprintf("%s/%d", g.Name, ri)
			if rule.tmpl, err = template.New(name).Parse(rule.Text); err != nil {
				return nil, fmt.Errorf("compile template %s: %w", name, err)
			}
		}
	}
	return &r, nil
}

// Narrate implements outlier.Narrator.
func (r *Rules) Narrate(in outlier.NarrativeInput) (string, error) {
	data := newData(in)

	var sentences []string
	for _, g := range r.Groups {
		for _, rule := range g.Rules {
			if !rule.When.matches(in) {
				continue
			}
			text, err := render(rule.tmpl, data)
			if err != nil {
				return "", err
			}
			sentences = append(sentences, text)
			break
		}
	}

	if len(sentences) == 0 {
		return render(r.fallback, data)
	}
	return strings.Join(sentences, " "), nil
}

func (w When) matches(in outlier.NarrativeInput) bool {
	if w.Bucket != "" && w.Bucket != in.Bucket.String() {
		return false
	}
	if w.Tag == "" {
		return true
	}

	value, ok := in.Entity.Tags[w.Tag]
	if !ok {
		return false
	}
	if len(w.In) > 0 && !slices.Contains(w.In, value) {
		return false
	}
	if w.Above != nil {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || !(f > *w.Above) {
			return false
		}
	}
	return true
}

func newData(in outlier.NarrativeInput) Data {
	mean := in.Population.Mean
	direction := "below"
	if in.ZScore > 0 || (!in.Defined && in.Value > mean) {
		direction = "above"
	}

	pct := 0.0
	if mean != 0 {
		pct = math.Abs((in.Value - mean) / mean * 100)
	}

	return Data{
		ID:          in.Entity.ID,
		Tags:        in.Entity.Tags,
		Value:       in.Value,
		ZScore:      in.ZScore,
		Mean:        strconv.FormatFloat(mean, 'f', 0, 64),
		PctFromMean: strconv.FormatFloat(pct, 'f', 0, 64),
		Direction:   direction,
	}
}

func render(t *template.Template, data Data) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
