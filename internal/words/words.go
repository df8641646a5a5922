// internal/words/words.go
//
// Word packs are line-oriented text assets:
//
//	#NAME: Default
//	#DESCRIPTION: The classic set.
//	Casino: Dealer, Bartender, Gambler
//	Polar Station:
//
// Lines starting with #TOKEN: set pack metadata; every other non-empty
// line is "location: role1, role2, ...". An empty role list (nothing
// after the colon) means the entry has no roles; a role that is pure
// whitespace is a parse error.
package words

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	maxLocationLength   = 25
	maxRoleLength       = 25
	maxSuggestionLength = 200
)

// SpySchoolLocation marks the all-spy variant: when a round lands on
// this location, every player is secretly a spy.
const SpySchoolLocation = "Spy School"

var rxLineBreak = regexp.MustCompile(`\r?\n`)

// InfoPair is one location entry. Roles is nil when the entry defines
// no roles.
type InfoPair struct {
	Location string
	Roles    []string
}

// Pack is a named, described collection of location entries. Immutable
// once loaded; rooms toggle packs on and off but never mutate them.
type Pack struct {
	Name        string
	Description string
	Pairs       []InfoPair
}

// LocationCount returns the number of entries in the pack.
func (p *Pack) LocationCount() int {
	return len(p.Pairs)
}

// RoleCount returns the total number of roles across all entries.
func (p *Pack) RoleCount() int {
	n := 0
	for _, pair := range p.Pairs {
		n += len(pair.Roles)
	}
	return n
}

// ParseError reports where in the asset parsing failed. Line is 1-based.
type ParseError struct {
	Line     int
	Fragment string
	Reason   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d - '%s': %s", e.Line, e.Fragment, e.Reason)
}

// ParsePack parses a pack asset. Any malformed line aborts the whole
// pack; there is no partially-loaded state.
func ParsePack(data string) (*Pack, error) {
	if strings.TrimSpace(data) == "" {
		return nil, &ParseError{1, "N/A", "no data specified"}
	}

	pack := &Pack{}
	lines := rxLineBreak.Split(strings.TrimSpace(data), -1)
	for i, line := range lines {
		lineNo := i + 1
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if err := parseMetadata(pack, line, lineNo); err != nil {
				return nil, err
			}
			continue
		}

		pair, err := parseEntry(line, lineNo)
		if err != nil {
			return nil, err
		}
		pack.Pairs = append(pack.Pairs, pair)
	}

	if len(pack.Pairs) == 0 {
		return nil, &ParseError{1, "N/A", "pack contains no locations"}
	}
	return pack, nil
}

func parseMetadata(pack *Pack, line string, lineNo int) error {
	token, value, found := strings.Cut(line[1:], ":")
	if !found {
		return &ParseError{lineNo, snippet(line), "error parsing metadata: no colon specified"}
	}
	value = strings.TrimSpace(value)
	switch strings.TrimSpace(token) {
	case "NAME":
		pack.Name = value
	case "DESCRIPTION":
		pack.Description = value
	default:
		return &ParseError{lineNo, snippet(line), "error parsing metadata: unknown token"}
	}
	return nil
}

func parseEntry(line string, lineNo int) (InfoPair, error) {
	location, roleData, found := strings.Cut(line, ":")
	if !found {
		return InfoPair{}, &ParseError{lineNo, "N/A", "error parsing location: no colon specified"}
	}

	location = strings.TrimSpace(location)
	if location == "" {
		return InfoPair{}, &ParseError{lineNo, "N/A", "error parsing location: location name cannot be empty"}
	}
	if len([]rune(location)) > maxLocationLength {
		return InfoPair{}, &ParseError{lineNo, snippet(location), "error parsing location: location name too long"}
	}

	segments := strings.Split(roleData, ",")
	if len(segments) == 1 && segments[0] == "" {
		// Nothing after the colon: an entry without roles. Whitespace
		// after the colon is not the same thing and falls through to
		// the empty-role error below.
		return InfoPair{Location: location}, nil
	}

	roles := make([]string, 0, len(segments))
	for _, seg := range segments {
		role := strings.TrimSpace(seg)
		if role == "" {
			return InfoPair{}, &ParseError{lineNo, location, "error parsing roles: role cannot be empty"}
		}
		if len([]rune(role)) > maxRoleLength {
			return InfoPair{}, &ParseError{lineNo, location, fmt.Sprintf("error parsing roles: role '%s' too long", snippet(role))}
		}
		roles = append(roles, role)
	}
	return InfoPair{Location: location, Roles: roles}, nil
}

// ParseSuggestions parses a suggestion asset: one conversation prompt
// per line, each capped at 200 characters.
func ParseSuggestions(data string) ([]string, error) {
	if strings.TrimSpace(data) == "" {
		return nil, &ParseError{1, "N/A", "no data specified"}
	}
	lines := rxLineBreak.Split(strings.TrimSpace(data), -1)
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len([]rune(line)) > maxSuggestionLength {
			return nil, &ParseError{i + 1, snippet(line), "line too long"}
		}
		out = append(out, line)
	}
	return out, nil
}

func snippet(s string) string {
	const max = 25
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
