package locations

import (
	"encoding/json"
	"fmt"
	"os"
)

// Location is a geographic coordinate pair.
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// County is one reference entry of the county dataset.
type County struct {
	Name       string   `json:"county"`
	Location   Location `json:"location"`
	Population int      `json:"population"`
}

// Directory is the static county reference mapping. It is loaded once at
// startup and read-only afterwards.
type Directory struct {
	counties map[string]County
}

// Load reads the county dataset from a JSON file.
func Load(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read county dataset: %w", err)
	}
	return Parse(data)
}

// Parse builds a directory from raw JSON dataset bytes.
func Parse(data []byte) (*Directory, error) {
	var entries []County
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse county dataset: %w", err)
	}

	counties := make(map[string]County, len(entries))
	for _, entry := range entries {
		counties[entry.Name] = entry
	}

	return &Directory{counties: counties}, nil
}

// Location resolves a county name to its coordinates. Lookup is an exact
// name match; an unknown county returns ok=false, never an error.
func (d *Directory) Location(county string) (Location, bool) {
	entry, ok := d.counties[county]
	if !ok {
		return Location{}, false
	}
	return entry.Location, true
}

// Population returns the county's population figure.
func (d *Directory) Population(county string) (int, bool) {
	entry, ok := d.counties[county]
	if !ok {
		return 0, false
	}
	return entry.Population, true
}

// Counties returns the number of entries in the directory.
func (d *Directory) Counties() int {
	return len(d.counties)
}
