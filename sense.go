package rpmpack

import (
	"fmt"
	"regexp"
	"strings"
)

// sense is the RPM dependency comparison bitmask (RPMSENSE_*).
type sense uint32

const (
	senseAny  sense = 0
	senseLess sense = 1 << iota
	senseGreater
	senseEqual
)

var senseStrings = map[sense]string{
	senseAny:                  "",
	senseLess:                 "<",
	senseGreater:              ">",
	senseEqual:                "=",
	senseLess | senseEqual:    "<=",
	senseGreater | senseEqual: ">=",
}

func (s sense) String() string {
	if str, ok := senseStrings[s]; ok {
		return str
	}
	return "UNKNOWN"
}

func parseSense(s string) (sense, error) {
	for val, str := range senseStrings {
		if s == str {
			return val, nil
		}
	}
	return senseAny, fmt.Errorf("rpmpack: unknown relation operator %q", s)
}

// relation is a parsed Provides/Requires/Conflicts/etc. entry: a capability
// name, an optional version, and the comparison sense tying them together.
type relation struct {
	Name    string
	Version string
	Sense   sense
}

var relationMatch = regexp.MustCompile(`([^=<>\s]*)\s*((?:=|>|<|>=|<=)*)\s*(.*)?`)

// parseRelation parses a single "name op version" string, such as
// "libfoo >= 1.2" or a bare "libfoo".
func parseRelation(s string) (*relation, error) {
	parts := relationMatch.FindStringSubmatch(s)
	sns, err := parseSense(strings.TrimSpace(parts[2]))
	if err != nil {
		return nil, err
	}
	return &relation{
		Name:    strings.TrimSpace(parts[1]),
		Version: strings.TrimSpace(parts[3]),
		Sense:   sns,
	}, nil
}

// parseRelations parses a list of relation strings, as found in
// RPMMetaData.Provides/Requires/Obsoletes/Conflicts/Suggests/Recommends.
func parseRelations(in []string) ([]*relation, error) {
	out := make([]*relation, len(in))
	for i, s := range in {
		r, err := parseRelation(s)
		if err != nil {
			return nil, fmt.Errorf("rpmpack: parsing relation %q: %w", s, err)
		}
		out[i] = r
	}
	return out, nil
}

// relationTags splits a slice of relations into the three parallel arrays
// (names, versions, numeric senses) the header format stores them as.
func relationTags(rs []*relation) (names, versions []string, flags []uint32) {
	names = make([]string, len(rs))
	versions = make([]string, len(rs))
	flags = make([]uint32, len(rs))
	for i, r := range rs {
		names[i] = r.Name
		versions[i] = r.Version
		flags[i] = uint32(r.Sense)
	}
	return names, versions, flags
}
