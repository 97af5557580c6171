package ortho

import (
	"fmt"
	"sort"
	"strings"
)

// Orthography identifies a writing convention of a language (e.g. cyr, ipa).
type Orthography string

// Canonical orthographies known by DefaultOrthographies.
const (
	Cyrillic Orthography = "cyr"
	IPA      Orthography = "ipa"
	Caucasus Orthography = "cauc"
)

// Language identifies a language, as used in the table header prefix.
type Language string

// Column is the typed form of a "language_target" table header.
type Column struct {
	Language    Language
	Orthography Orthography
}

// ParseColumn splits a table header on its first underscore.
func ParseColumn(header string) (Column, error) {
	lang, target, ok := strings.Cut(header, "_")
	if !ok || lang == "" || target == "" {
		return Column{}, fmt.Errorf("column %q is not of the form language_target", header)
	}
	return Column{Language: Language(lang), Orthography: Orthography(target)}, nil
}

func (c Column) String() string {
	return string(c.Language) + "_" + string(c.Orthography)
}

// OrthographySet is the immutable set of recognized orthography identifiers.
// Each canonical member may have spelling aliases that resolve to it.
type OrthographySet struct {
	canonical []Orthography
	aliases   map[string]Orthography
}

// OrthographySpec declares one canonical orthography and its aliases.
type OrthographySpec struct {
	ID      Orthography
	Aliases []string
}

// NewOrthographySet builds a set from specs. Order of specs is the order of
// the recommended values listed in error messages.
func NewOrthographySet(specs ...OrthographySpec) (*OrthographySet, error) {
	s := &OrthographySet{aliases: make(map[string]Orthography)}
	for _, spec := range specs {
		if spec.ID == "" {
			return nil, fmt.Errorf("empty orthography identifier")
		}
		for _, name := range append([]string{string(spec.ID)}, spec.Aliases...) {
			if prev, dup := s.aliases[name]; dup {
				return nil, fmt.Errorf("orthography name %q declared for both %s and %s", name, prev, spec.ID)
			}
			s.aliases[name] = spec.ID
		}
		s.canonical = append(s.canonical, spec.ID)
	}
	return s, nil
}

var defaultOrthographies = mustOrthographySet(
	OrthographySpec{ID: Cyrillic, Aliases: []string{"cyrillic", "кир", "кириллица"}},
	OrthographySpec{ID: IPA},
	OrthographySpec{ID: Caucasus},
)

// DefaultOrthographies returns the built-in set: cyr (with aliases), ipa and cauc.
func DefaultOrthographies() *OrthographySet { return defaultOrthographies }

func mustOrthographySet(specs ...OrthographySpec) *OrthographySet {
	s, err := NewOrthographySet(specs...)
	if err != nil {
		panic(err)
	}
	return s
}

// Resolve maps an identifier or alias to its canonical orthography.
// param names the argument in the returned *ArgumentError.
func (s *OrthographySet) Resolve(param, id string) (Orthography, error) {
	if o, ok := s.aliases[id]; ok {
		return o, nil
	}
	return "", &ArgumentError{Param: param, Value: id, Recommended: s.Recommended()}
}

// Known reports whether o is a canonical member of the set.
func (s *OrthographySet) Known(o Orthography) bool {
	c, ok := s.aliases[string(o)]
	return ok && c == o
}

// Recommended returns the canonical identifiers in declaration order.
func (s *OrthographySet) Recommended() []string {
	out := make([]string, len(s.canonical))
	for i, o := range s.canonical {
		out[i] = string(o)
	}
	return out
}

// Aliases returns the alternative names of o, excluding o itself.
func (s *OrthographySet) Aliases(o Orthography) []string {
	var out []string
	for name, c := range s.aliases {
		if c == o && name != string(o) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
