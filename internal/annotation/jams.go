// Package annotation reads JAMS ground-truth files.
package annotation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
)

var (
	ErrNoBeats    = errors.New("no annotated beats")
	ErrNoSections = errors.New("no annotated sections")
)

// Value is a JAMS scalar observation field. Only the parts the runner reads
// are decoded; confidence, secondary values and the rest are ignored.
type Value struct {
	Value   json.RawMessage `json:"value"`
	Context string          `json:"context,omitempty"`
}

// Float decodes the value as a number.
func (v Value) Float() (float64, error) {
	var f float64
	if err := json.Unmarshal(v.Value, &f); err != nil {
		return 0, fmt.Errorf("decode value %s: %w", string(v.Value), err)
	}
	return f, nil
}

// String decodes the value as a string, returning "" for non-string values.
func (v Value) String() string {
	var s string
	_ = json.Unmarshal(v.Value, &s)
	return s
}

// Observation is one entry of an annotation's data array. Beat entries
// carry Time; section entries carry Start, End and Label.
type Observation struct {
	Time  *Value `json:"time,omitempty"`
	Start *Value `json:"start,omitempty"`
	End   *Value `json:"end,omitempty"`
	Label *Value `json:"label,omitempty"`
}

type Annotation struct {
	Data []Observation `json:"data"`
}

// JAMS is the subset of a JAMS document the runner needs. Metadata and
// sandbox blocks are left undecoded so their shape cannot fail a load.
type JAMS struct {
	Beats    []Annotation `json:"beats"`
	Sections []Annotation `json:"sections"`
}

// Load reads and decodes a JAMS file.
func Load(path string) (*JAMS, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var j JAMS
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &j, nil
}

// HasBeatData reports whether the first beat annotation carries any data.
func (j *JAMS) HasBeatData() bool {
	return len(j.Beats) > 0 && len(j.Beats[0].Data) > 0
}

// BeatTimes returns the sorted, de-duplicated beat times of the first beat annotation.
func (j *JAMS) BeatTimes() ([]float64, error) {
	if !j.HasBeatData() {
		return nil, ErrNoBeats
	}
	seen := make(map[float64]struct{}, len(j.Beats[0].Data))
	times := make([]float64, 0, len(j.Beats[0].Data))
	for i, obs := range j.Beats[0].Data {
		if obs.Time == nil {
			return nil, fmt.Errorf("beat %d: missing time", i)
		}
		t, err := obs.Time.Float()
		if err != nil {
			return nil, fmt.Errorf("beat %d: %w", i, err)
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		times = append(times, t)
	}
	sort.Float64s(times)
	return times, nil
}

// sectionContexts maps dataset prefixes to the segment level their
// boundaries are evaluated on.
var sectionContexts = map[string]string{
	"Isophonics": "function",
	"SALAMI":     "large_scale",
	"Cerulean":   "large_scale",
	"Epiphyte":   "function",
	"Sargon":     "large_scale",
}

// BoundaryTimes returns the start of every section plus the latest section
// end, taken from the first section annotation. When the dataset has a known
// segment level and the labels carry contexts, only that level is used.
func (j *JAMS) BoundaryTimes(dataset string) ([]float64, error) {
	if len(j.Sections) == 0 || len(j.Sections[0].Data) == 0 {
		return nil, ErrNoSections
	}
	data := filterContext(j.Sections[0].Data, sectionContexts[dataset])
	if len(data) == 0 {
		return nil, ErrNoSections
	}

	times := make([]float64, 0, len(data)+1)
	last := math.Inf(-1)
	for i, obs := range data {
		if obs.Start == nil {
			return nil, fmt.Errorf("section %d: missing start", i)
		}
		start, err := obs.Start.Float()
		if err != nil {
			return nil, fmt.Errorf("section %d: %w", i, err)
		}
		times = append(times, start)
		if obs.End == nil {
			continue
		}
		end, err := obs.End.Float()
		if err != nil {
			return nil, fmt.Errorf("section %d: %w", i, err)
		}
		last = math.Max(last, end)
	}
	if math.IsInf(last, -1) {
		return nil, errors.New("sections: no end time")
	}
	return append(times, last), nil
}

func filterContext(data []Observation, context string) []Observation {
	if context == "" {
		return data
	}
	var out []Observation
	for _, obs := range data {
		if obs.Label != nil && obs.Label.Context == context {
			out = append(out, obs)
		}
	}
	if len(out) == 0 {
		// labels without contexts
		return data
	}
	return out
}
