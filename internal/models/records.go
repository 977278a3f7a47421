package models

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"morphoprofile/pkg/collection"
	"morphoprofile/pkg/profile"
	"morphoprofile/pkg/segment"
)

// Dataset is the input file: a named set of closed outlines.
type Dataset struct {
	Name     string    `yaml:"name"`
	Outlines []Outline `yaml:"outlines"`
}

// Outline is one traced object border, as points in order around it.
type Outline struct {
	// ID is generated when absent so results can refer back to the outline
	ID     uuid.UUID    `yaml:"id,omitempty"`
	Name   string       `yaml:"name"`
	Locked bool         `yaml:"locked,omitempty"`
	Points [][2]float64 `yaml:"points"`
}

// Result is the output of an analysis run.
type Result struct {
	Dataset   string                      `yaml:"dataset"`
	Length    int                         `yaml:"length"`
	Landmarks map[collection.Landmark]int `yaml:"landmarks"`
	Segments  []segment.Record            `yaml:"segments"`
	Profiles  []ConsensusProfile          `yaml:"profiles"`
	Members   []MemberResult              `yaml:"members"`
}

// ConsensusProfile holds the quartile profiles of one type, from the
// reference point.
type ConsensusProfile struct {
	Type          profile.Type    `yaml:"type"`
	Median        profile.Profile `yaml:"median"`
	LowerQuartile profile.Profile `yaml:"q25"`
	UpperQuartile profile.Profile `yaml:"q75"`
}

// MemberResult records one member's landmarks and segments in its raw index
// space.
type MemberResult struct {
	ID        uuid.UUID                   `yaml:"id"`
	Name      string                      `yaml:"name"`
	Length    int                         `yaml:"length"`
	Locked    bool                        `yaml:"locked,omitempty"`
	Landmarks map[collection.Landmark]int `yaml:"landmarks"`
	Segments  []segment.Record            `yaml:"segments,omitempty"`

	// Difference is the root sum of squared differences between the
	// member's angle profile and the consensus median, per border point.
	Difference float64 `yaml:"difference"`
}

// Member looks up the record for member id.
func (r *Result) Member(id uuid.UUID) (*MemberResult, error) {
	for i := range r.Members {
		if r.Members[i].ID == id {
			return &r.Members[i], nil
		}
	}
	return nil, profile.NotFoundf("member %s in result", id)
}

// OutlineID derives the id of an outline that has none from its dataset,
// position and name, so repeated loads agree.
func OutlineID(dataset string, position int, name string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s/%d/%s", dataset, position, name)))
}

// LoadDataset reads a dataset file, names unnamed outlines and assigns ids
// to outlines without one.
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading dataset file: %w", err)
	}
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("error parsing dataset file: %w", err)
	}
	if len(ds.Outlines) == 0 {
		return nil, profile.Invalidf("dataset %s has no outlines", path)
	}
	seen := make(map[uuid.UUID]int, len(ds.Outlines))
	for i := range ds.Outlines {
		o := &ds.Outlines[i]
		if o.Name == "" {
			o.Name = fmt.Sprintf("outline_%d", i+1)
		}
		if o.ID == uuid.Nil {
			o.ID = OutlineID(ds.Name, i, o.Name)
		}
		if j, ok := seen[o.ID]; ok {
			return nil, profile.Invalidf("outlines %d and %d share id %s", j+1, i+1, o.ID)
		}
		seen[o.ID] = i
	}
	return &ds, nil
}

// LoadResult reads a result file written by SaveResult.
func LoadResult(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading result file: %w", err)
	}
	var r Result
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("error parsing result file: %w", err)
	}
	return &r, nil
}

// SaveYAML writes v to path, creating the directory if needed.
func SaveYAML(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("error marshaling %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing %s: %w", filepath.Base(path), err)
	}
	return nil
}
