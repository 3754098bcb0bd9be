package filter

import (
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/pkg/errors"
)

const (
	KeyName     = "q"
	KeySkills   = "f"
	KeyLocation = "c"

	skillSeparator = "+"
)

var ErrMalformedQuery = errors.New("malformed filter query")

// Matcher is a case-insensitive substring matcher over literal text.
// The text never acts as a pattern: every regex metacharacter is escaped.
type Matcher struct {
	literal string
	re      *regexp.Regexp
}

func NewMatcher(literal string) *Matcher {
	return &Matcher{
		literal: literal,
		re:      regexp.MustCompile("(?i)" + regexp.QuoteMeta(literal)),
	}
}

func (m *Matcher) Literal() string {
	return m.literal
}

// Pattern returns the escaped regular expression without flags, suitable for
// case-insensitive regex operators of the store (postgres `~*`).
func (m *Matcher) Pattern() string {
	return regexp.QuoteMeta(m.literal)
}

func (m *Matcher) Match(s string) bool {
	return m.re.MatchString(s)
}

// Query holds the active predicates of a project search. A nil matcher or an
// empty skill list means the predicate is not applied.
type Query struct {
	Name     *Matcher
	Skills   []string
	Location *Matcher
}

// Parse reads `q=<name>&f=<skill>[+<skill>...]&c=<city>`.
//
// Segments are keyed, not positional: each is split once on the first '=',
// missing keys default to empty and unknown keys are ignored. A segment
// without '=' makes the whole query malformed.
func Parse(raw string) (*Query, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.Wrap(ErrMalformedQuery, "query is empty or blank")
	}

	values := make(map[string]string, 3)
	for _, segment := range strings.Split(raw, "&") {
		if segment == "" {
			continue
		}
		key, value, ok := strings.Cut(segment, "=")
		if !ok {
			return nil, errors.Wrapf(ErrMalformedQuery, "segment %q has no '='", segment)
		}
		values[key] = value
	}

	q := &Query{}

	name, err := decode(values[KeyName])
	if err != nil {
		return nil, err
	}
	if name != "" {
		q.Name = NewMatcher(name)
	}

	if q.Skills, err = parseSkills(values[KeySkills]); err != nil {
		return nil, err
	}

	location, err := decode(values[KeyLocation])
	if err != nil {
		return nil, err
	}
	if location != "" {
		q.Location = NewMatcher(location)
	}

	return q, nil
}

func parseSkills(value string) ([]string, error) {
	parts := []string{value}
	if strings.Contains(value, skillSeparator) {
		parts = strings.Split(value, skillSeparator)
	}

	skills := make([]string, 0, len(parts))
	for _, part := range parts {
		skill, err := decode(part)
		if err != nil {
			return nil, err
		}
		if skill == "" || slices.Contains(skills, skill) {
			continue
		}
		skills = append(skills, skill)
	}

	if len(skills) == 0 {
		return nil, nil
	}
	return skills, nil
}

// decode applies path unescaping so that '+' is kept as a literal character.
func decode(value string) (string, error) {
	decoded, err := url.PathUnescape(value)
	if err != nil {
		return "", errors.Wrapf(ErrMalformedQuery, "invalid escape in %q", value)
	}
	return decoded, nil
}

// IsEmpty reports whether no predicate is active.
func (q *Query) IsEmpty() bool {
	return q.Name == nil && q.Location == nil && len(q.Skills) == 0
}

// Matches evaluates every active predicate in memory. Skills are matched
// exactly and case-sensitively, all of them must be present.
// Name and location fold case with Unicode rules, which matches postgres `~*`
// only when the database ctype is UTF-8.
func (q *Query) Matches(name string, skills []string, location string) bool {
	if q.Name != nil && !q.Name.Match(name) {
		return false
	}
	if q.Location != nil && !q.Location.Match(location) {
		return false
	}
	for _, skill := range q.Skills {
		if !slices.Contains(skills, skill) {
			return false
		}
	}
	return true
}
