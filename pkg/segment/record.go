package segment

import (
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Record is the persisted form of a segment.
type Record struct {
	ID           uuid.UUID `yaml:"id"`
	Start        int       `yaml:"start"`
	End          int       `yaml:"end"`
	Total        int       `yaml:"total"`
	Locked       bool      `yaml:"locked,omitempty"`
	MergeSources []Record  `yaml:"merge_sources,omitempty"`
}

// Record converts the segment, including merge sources, to its persisted form.
func (s Segment) Record() Record {
	r := Record{ID: s.id, Start: s.start, End: s.end, Total: s.total, Locked: s.locked}
	for _, src := range s.sources {
		r.MergeSources = append(r.MergeSources, src.Record())
	}
	return r
}

// FromRecord rebuilds a segment, validating it and every merge source.
func FromRecord(r Record) (Segment, error) {
	s, err := New(r.ID, r.Start, r.End, r.Total)
	if err != nil {
		return Segment{}, err
	}
	s.locked = r.Locked
	for _, sr := range r.MergeSources {
		src, err := FromRecord(sr)
		if err != nil {
			return Segment{}, err
		}
		if err := s.AddMergeSource(src); err != nil {
			return Segment{}, err
		}
	}
	return s, nil
}

// Records converts a list of segments.
func Records(segs []Segment) []Record {
	out := make([]Record, len(segs))
	for i, s := range segs {
		out[i] = s.Record()
	}
	return out
}

// FromRecords rebuilds a list of segments.
func FromRecords(rs []Record) ([]Segment, error) {
	out := make([]Segment, len(rs))
	for i, r := range rs {
		s, err := FromRecord(r)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// MarshalYAML writes the segment as a Record.
func (s Segment) MarshalYAML() (interface{}, error) {
	return s.Record(), nil
}

// UnmarshalYAML reads and validates a Record.
func (s *Segment) UnmarshalYAML(node *yaml.Node) error {
	var r Record
	if err := node.Decode(&r); err != nil {
		return err
	}
	parsed, err := FromRecord(r)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
