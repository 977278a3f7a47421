package analysis

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"morphoprofile/pkg/collection"
	"morphoprofile/pkg/profile"
)

// Edit is one change to the consensus segmentation, propagated to members.
type Edit interface {
	Apply(m *collection.Manager) error
	String() string
}

// Move sets the start of a consensus segment.
type Move struct {
	ID    uuid.UUID
	Index int
}

func (e Move) Apply(m *collection.Manager) error {
	if err := m.UpdateMedianSegmentStart(e.ID, e.Index); err != nil {
		return err
	}
	return m.AssignSegmentsToMembers()
}

func (e Move) String() string { return fmt.Sprintf("move %s=%d", e.ID, e.Index) }

// Merge joins a segment with the one after it under a new id.
type Merge struct {
	First, Second uuid.UUID
	NewID         uuid.UUID
}

func (e Merge) Apply(m *collection.Manager) error {
	ok, err := m.TestSegmentsMergeable(e.First, e.Second)
	if err != nil {
		return err
	}
	if !ok {
		return profile.Invalidf("segments %s and %s cannot be merged", e.First, e.Second)
	}
	return m.MergeSegments(e.First, e.Second, e.NewID)
}

func (e Merge) String() string { return fmt.Sprintf("merge %s,%s", e.First, e.Second) }

// Split cuts a consensus segment at an index.
type Split struct {
	ID       uuid.UUID
	Index    int
	IDs      [2]uuid.UUID
	Midpoint bool
}

func (e Split) Apply(m *collection.Manager) error {
	if e.Midpoint {
		return m.SplitSegment(e.ID, e.IDs[0], e.IDs[1])
	}
	return m.SplitSegmentAt(e.ID, e.Index, e.IDs[0], e.IDs[1])
}

func (e Split) String() string {
	if e.Midpoint {
		return fmt.Sprintf("split %s", e.ID)
	}
	return fmt.Sprintf("split %s@%d", e.ID, e.Index)
}

// Unmerge restores the segments a merged segment was made from.
type Unmerge struct {
	ID uuid.UUID
}

func (e Unmerge) Apply(m *collection.Manager) error { return m.UnmergeSegment(e.ID) }

func (e Unmerge) String() string { return fmt.Sprintf("unmerge %s", e.ID) }

// ParseMove parses "id=index".
func ParseMove(s string) (Move, error) {
	id, idx, ok := strings.Cut(s, "=")
	if !ok {
		return Move{}, profile.Invalidf("move %q is not id=index", s)
	}
	sid, err := parseID(id)
	if err != nil {
		return Move{}, err
	}
	index, err := parseIndex(idx)
	if err != nil {
		return Move{}, err
	}
	return Move{ID: sid, Index: index}, nil
}

// ParseMerge parses "first,second". The merged segment gets a fresh id.
func ParseMerge(s string) (Merge, error) {
	a, b, ok := strings.Cut(s, ",")
	if !ok {
		return Merge{}, profile.Invalidf("merge %q is not first,second", s)
	}
	first, err := parseID(a)
	if err != nil {
		return Merge{}, err
	}
	second, err := parseID(b)
	if err != nil {
		return Merge{}, err
	}
	return Merge{First: first, Second: second, NewID: uuid.New()}, nil
}

// ParseSplit parses "id@index", or a bare "id" to split at the midpoint.
// The halves get fresh ids.
func ParseSplit(s string) (Split, error) {
	id, idx, hasIndex := strings.Cut(s, "@")
	sid, err := parseID(id)
	if err != nil {
		return Split{}, err
	}
	e := Split{ID: sid, IDs: [2]uuid.UUID{uuid.New(), uuid.New()}, Midpoint: !hasIndex}
	if hasIndex {
		if e.Index, err = parseIndex(idx); err != nil {
			return Split{}, err
		}
	}
	return e, nil
}

// ParseUnmerge parses a segment id.
func ParseUnmerge(s string) (Unmerge, error) {
	id, err := parseID(s)
	if err != nil {
		return Unmerge{}, err
	}
	return Unmerge{ID: id}, nil
}

func parseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, profile.Invalidf("segment id %q: %v", s, err)
	}
	return id, nil
}

func parseIndex(s string) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, profile.Invalidf("index %q: %v", s, err)
	}
	return i, nil
}
