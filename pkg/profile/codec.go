package profile

import (
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// String renders the profile as "[v0, v1, ...]".
func (p Profile) String() string {
	b, _ := p.MarshalText()
	return string(b)
}

// MarshalText writes the shortest decimal form of each sample, so that
// UnmarshalText reproduces the array exactly.
func (p Profile) MarshalText() ([]byte, error) {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range p.values {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	sb.WriteByte(']')
	return []byte(sb.String()), nil
}

// UnmarshalText parses the form written by MarshalText.
func (p *Profile) UnmarshalText(b []byte) error {
	s := strings.TrimSpace(string(b))
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if strings.TrimSpace(s) == "" {
		return Invalidf("profile text holds no values")
	}
	fields := strings.Split(s, ",")
	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return Invalidf("profile value %d: %v", i, err)
		}
		values[i] = v
	}
	p.values = values
	return nil
}

// Parse reads a profile from its text form.
func Parse(s string) (Profile, error) {
	var p Profile
	if err := p.UnmarshalText([]byte(s)); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// MarshalYAML writes the samples as a flow sequence.
func (p Profile) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, v := range p.values {
		node.Content = append(node.Content, &yaml.Node{
			Kind:  yaml.ScalarNode,
			Value: yamlFloat(v),
		})
	}
	return node, nil
}

// UnmarshalYAML accepts either a sequence of numbers or the text form.
func (p *Profile) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return p.UnmarshalText([]byte(node.Value))
	}
	var values []float64
	if err := node.Decode(&values); err != nil {
		return err
	}
	parsed, err := New(values)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func yamlFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return ".nan"
	case math.IsInf(v, 1):
		return ".inf"
	case math.IsInf(v, -1):
		return "-.inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
