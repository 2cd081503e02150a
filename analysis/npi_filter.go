package analysis

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// NPIFilter is an allow-list of provider NPIs. A nil filter allows every
// provider.
type NPIFilter map[string]bool

// Allows reports whether npi passes the filter.
func (f NPIFilter) Allows(npi string) bool {
	if f == nil {
		return true
	}
	return f[npi]
}

type npiEntry struct {
	NPI string `json:"npi"`
}

// LoadNPIFilter reads a JSON array of objects with "npi" string fields.
func LoadNPIFilter(path string) (NPIFilter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read NPI file: %w", err)
	}

	var entries []npiEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse NPI file: %w", err)
	}

	filter := make(NPIFilter, len(entries))
	for _, e := range entries {
		if len(e.NPI) != 10 {
			return nil, fmt.Errorf("invalid NPI %q: want 10 digits", e.NPI)
		}
		if _, err := strconv.ParseUint(e.NPI, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid NPI %q: %w", e.NPI, err)
		}
		filter[e.NPI] = true
	}
	return filter, nil
}
