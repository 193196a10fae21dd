package customreplies

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ActiveLister returns the rules eligible for matching.
type ActiveLister interface {
	ListActive(ctx context.Context) ([]Reply, error)
}

// Matcher applies the matching policy: a rule matches when its trigger or
// any of its keywords is contained in the message, ignoring case and
// accents. Inactive rules never match and the oldest matching rule wins.
type Matcher struct {
	source ActiveLister
}

// NewMatcher creates a matcher reading rules from source.
func NewMatcher(source ActiveLister) *Matcher {
	return &Matcher{source: source}
}

// FindMatch returns the response of the first matching rule.
func (m *Matcher) FindMatch(ctx context.Context, text string) (string, bool, error) {
	rules, err := m.source.ListActive(ctx)
	if err != nil {
		return "", false, err
	}
	reply, ok := Match(rules, text)
	if !ok {
		return "", false, nil
	}
	return reply.Response, true, nil
}

// Match picks the matching rule from rules without touching storage.
func Match(rules []Reply, text string) (Reply, bool) {
	message := fold(text)
	if message == "" {
		return Reply{}, false
	}

	ordered := make([]Reply, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	for _, rule := range ordered {
		if !rule.Active {
			continue
		}
		if t := fold(rule.Trigger); t != "" && strings.Contains(message, t) {
			return rule, true
		}
		for _, kw := range rule.Keywords {
			if k := fold(kw); k != "" && strings.Contains(message, k) {
				return rule, true
			}
		}
	}
	return Reply{}, false
}

// fold lowercases s, strips diacritics, turns punctuation into spaces and
// collapses whitespace so that "¿Horário?" and "horario" compare equal.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) {
			return ' '
		}
		return unicode.ToLower(r)
	}, out)
	return strings.Join(strings.Fields(out), " ")
}
