package segmented

import (
	"gopkg.in/yaml.v3"

	"morphoprofile/pkg/profile"
	"morphoprofile/pkg/segment"
)

// Record is the persisted form of a segmented profile.
type Record struct {
	Values   profile.Profile  `yaml:"values"`
	Segments []segment.Record `yaml:"segments"`
}

// Record converts the profile and its segments to the persisted form.
func (sp *Profile) Record() Record {
	return Record{Values: sp.values, Segments: segment.Records(sp.ring.Segments())}
}

// FromRecord rebuilds and validates a segmented profile.
func FromRecord(r Record) (*Profile, error) {
	segs, err := segment.FromRecords(r.Segments)
	if err != nil {
		return nil, err
	}
	return New(r.Values, segs)
}

// MarshalYAML writes the profile as a Record.
func (sp *Profile) MarshalYAML() (interface{}, error) {
	return sp.Record(), nil
}

// UnmarshalYAML reads and validates a Record.
func (sp *Profile) UnmarshalYAML(node *yaml.Node) error {
	var r Record
	if err := node.Decode(&r); err != nil {
		return err
	}
	parsed, err := FromRecord(r)
	if err != nil {
		return err
	}
	*sp = *parsed
	return nil
}
