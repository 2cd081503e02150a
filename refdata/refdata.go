// Package refdata holds the static reference tables the analyses join
// against: FMAP rates, state spending and population, HCPCS definitions,
// known providers and the data source catalogue.
//
// A Dataset is built once with Load and never mutated afterwards.
package refdata

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

//go:embed data/*.json
var files embed.FS

// FMAP is one jurisdiction's Federal Medical Assistance Percentage.
type FMAP struct {
	StateCode       string  `json:"stateCode"`
	StateName       string  `json:"stateName"`
	FY2024          float64 `json:"fy2024"`
	FY2023          float64 `json:"fy2023"`
	FY2022          float64 `json:"fy2022"`
	ExpansionStatus string  `json:"expansionStatus"`
}

// Expanded reports whether the state adopted ACA Medicaid expansion.
func (f FMAP) Expanded() bool { return f.ExpansionStatus == "Y" }

// StateSpending is total Medicaid spending and Census 2020 population.
type StateSpending struct {
	State      string  `json:"state"`
	Spending   float64 `json:"spending"`
	Population int64   `json:"population"`
	PerCapita  float64 `json:"perCapita"`
}

type Provider struct {
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
	State     string `json:"state"`
	Type      string `json:"type"`
}

// HCPCSTotal is a precomputed nationwide aggregate for one procedure code.
type HCPCSTotal struct {
	Code          string  `json:"code"`
	Spending      float64 `json:"spending"`
	Claims        int64   `json:"claims"`
	Beneficiaries int64   `json:"beneficiaries"`
}

type Source struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description"`
	DataType    string `json:"dataType"`
	LastUpdated string `json:"lastUpdated,omitempty"`
	Coverage    string `json:"coverage,omitempty"`
}

// CensusInfo describes the population source behind per-capita figures.
type CensusInfo struct {
	Source          string   `json:"source"`
	URL             string   `json:"url"`
	Fields          []string `json:"fields"`
	Methodology     string   `json:"methodology"`
	ZScoreThreshold string   `json:"zScoreThreshold"`
}

var CensusMetadata = CensusInfo{
	Source:          "U.S. Census Bureau, 2020 Decennial Census",
	URL:             "https://data.census.gov/",
	Fields:          []string{"Total Population by State/Territory"},
	Methodology:     "Per-capita spending calculated as Total Medicaid Spending / Census Population",
	ZScoreThreshold: "High outliers: z > 2.0 (top ~2.5%), Low outliers: z < -1.5 (bottom ~7%)",
}

// Dataset is the loaded reference data. Accessors return copies so callers
// cannot mutate shared state.
type Dataset struct {
	fmap       []FMAP
	spending   []StateSpending
	stateNames map[string]string
	hcpcs      map[string]string
	providers  map[string]Provider
	topHCPCS   []HCPCSTotal
	sources    []Source
}

// Load decodes the embedded reference tables.
func Load() (*Dataset, error) {
	ds := &Dataset{}
	for _, f := range []struct {
		name string
		dst  any
	}{
		{"fmap.json", &ds.fmap},
		{"state_spending.json", &ds.spending},
		{"states.json", &ds.stateNames},
		{"hcpcs.json", &ds.hcpcs},
		{"providers.json", &ds.providers},
		{"top_hcpcs.json", &ds.topHCPCS},
		{"sources.json", &ds.sources},
	} {
		data, err := files.ReadFile("data/" + f.name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.name, err)
		}
		if err := json.Unmarshal(data, f.dst); err != nil {
			return nil, fmt.Errorf("decode %s: %w", f.name, err)
		}
	}
	return ds, nil
}

// MustLoad is Load for package initialisation and tests.
func MustLoad() *Dataset {
	ds, err := Load()
	if err != nil {
		panic(err)
	}
	return ds
}

func (d *Dataset) FMAP() []FMAP { return append([]FMAP(nil), d.fmap...) }

func (d *Dataset) StateSpending() []StateSpending {
	return append([]StateSpending(nil), d.spending...)
}

func (d *Dataset) TopHCPCS() []HCPCSTotal { return append([]HCPCSTotal(nil), d.topHCPCS...) }

func (d *Dataset) Sources() []Source { return append([]Source(nil), d.sources...) }

// FMAPFor returns the FMAP row of a state code.
func (d *Dataset) FMAPFor(code string) (FMAP, bool) {
	for _, f := range d.fmap {
		if f.StateCode == code {
			return f, true
		}
	}
	return FMAP{}, false
}

// StateName returns the full name of a state or territory code, or the code
// itself when unknown.
func (d *Dataset) StateName(code string) string {
	if name, ok := d.stateNames[code]; ok {
		return name
	}
	return code
}

// StateCodes lists every known state and territory code, sorted.
func (d *Dataset) StateCodes() []string {
	codes := make([]string, 0, len(d.stateNames))
	for code := range d.stateNames {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// HCPCSDefinition returns a short description of a procedure code.
func (d *Dataset) HCPCSDefinition(code string) string {
	if def, ok := d.hcpcs[code]; ok {
		return def
	}
	return "Procedure code"
}

// ProviderInfo looks up a provider in the NPPES extract.
func (d *Dataset) ProviderInfo(npi string) (Provider, bool) {
	p, ok := d.providers[npi]
	return p, ok
}

// ProviderName returns the registered name of a provider or "Provider <npi>".
func (d *Dataset) ProviderName(npi string) string {
	if p, ok := d.providers[npi]; ok {
		return p.Name
	}
	return "Provider " + npi
}

// Source returns a catalogue entry by id.
func (d *Dataset) Source(id string) (Source, bool) {
	for _, s := range d.sources {
		if s.ID == id {
			return s, true
		}
	}
	return Source{}, false
}

// SourcesByType returns the sources whose data type contains t, ignoring case.
func (d *Dataset) SourcesByType(t string) []Source {
	t = strings.ToLower(t)
	var out []Source
	for _, s := range d.sources {
		if strings.Contains(strings.ToLower(s.DataType), t) {
			out = append(out, s)
		}
	}
	return out
}

var categoryPrefixes = []struct {
	prefix   string
	category string
}{
	{"99", "Evaluation & Management"},
	{"90", "Medicine/Vaccines"},
	{"8", "Lab/Pathology"},
	{"7", "Radiology/Imaging"},
	{"9", "Medicine"},
	{"D", "Dental"},
	{"V", "Vision"},
	{"A", "Ambulance/Transport"},
	{"E", "DME Equipment"},
	{"0", "Temporary/New Codes"},
}

// HCPCSCategory classifies a procedure code by its prefix.
func HCPCSCategory(code string) string {
	for _, p := range categoryPrefixes {
		if strings.HasPrefix(code, p.prefix) {
			return p.category
		}
	}
	return "Other"
}
