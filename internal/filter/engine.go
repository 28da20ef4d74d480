// Package filter implements the include/exclude rules applied to imported entries.
package filter

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind defines the type of filter rule.
type Kind string

// Supported rule kinds.
const (
	Include   Kind = "include"
	Exclude   Kind = "exclude"
	IncludeRe Kind = "include_re"
	ExcludeRe Kind = "exclude_re"
)

// regexPrefix marks a configured rule value as a regular expression.
const regexPrefix = "re:"

// Rule is a single filtering rule.
type Rule struct {
	Kind  Kind
	Value string
}

// Entry is the text of an incoming entry to be matched against rules.
type Entry struct {
	Title       string
	Description string
}

// Match checks whether an entry passes the given set of rules.
// If no rules are provided, the entry always passes.
// Include rules use OR logic (at least one must match).
// Exclude rules use AND logic (none must match).
func Match(entry Entry, rules []Rule) bool {
	if len(rules) == 0 {
		return true
	}

	hasIncludes := false
	anyIncludeMatched := false

	for _, r := range rules {
		switch r.Kind {
		case Include, IncludeRe:
			hasIncludes = true
			if matchesRule(entry, r) {
				anyIncludeMatched = true
			}
		case Exclude, ExcludeRe:
			if matchesRule(entry, r) {
				return false
			}
		}
	}

	return !hasIncludes || anyIncludeMatched
}

func matchesRule(entry Entry, r Rule) bool {
	text := strings.ToLower(entry.Title + " " + entry.Description)
	switch r.Kind {
	case Include, Exclude:
		return strings.Contains(text, strings.ToLower(r.Value))
	case IncludeRe, ExcludeRe:
		re, err := regexp.Compile("(?i)" + r.Value)
		if err != nil {
			return false
		}
		return re.MatchString(text)
	}
	return false
}

// ParseRules builds rules from configured include and exclude values.
// Values prefixed with "re:" are regular expressions; the rest are plain
// case-insensitive substrings.
func ParseRules(include, exclude []string) ([]Rule, error) {
	var rules []Rule
	add := func(values []string, plain, re Kind) error {
		for _, v := range values {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			if pattern, ok := strings.CutPrefix(v, regexPrefix); ok {
				if err := ValidateRegex(pattern); err != nil {
					return fmt.Errorf("%s rule %q: %w", re, pattern, err)
				}
				rules = append(rules, Rule{Kind: re, Value: pattern})
				continue
			}
			rules = append(rules, Rule{Kind: plain, Value: v})
		}
		return nil
	}
	if err := add(include, Include, IncludeRe); err != nil {
		return nil, err
	}
	if err := add(exclude, Exclude, ExcludeRe); err != nil {
		return nil, err
	}
	return rules, nil
}

// ValidateRegex checks whether a pattern is a valid regular expression.
func ValidateRegex(pattern string) error {
	_, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return fmt.Errorf("invalid regex: %w", err)
	}
	return nil
}
