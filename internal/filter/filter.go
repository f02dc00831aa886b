package filter

import (
	"fmt"
	"regexp"
)

// Polarity decides whether a matching rule admits or rejects a value.
type Polarity int

const (
	Allow Polarity = iota
	Deny
)

// Rule is a compiled filter rule. Name is the configuration key the
// pattern came from, so error and log messages can identify it.
type Rule struct {
	Name     string
	Pattern  *regexp.Regexp
	Polarity Polarity
}

// Compile builds a Rule from a configured pattern. Patterns are matched
// partially (regexp.MatchString semantics, like re.search); anchoring is
// the pattern author's job.
func Compile(name, pattern string, polarity Polarity) (Rule, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("%s: invalid regex %q: %w", name, pattern, err)
	}
	return Rule{Name: name, Pattern: re, Polarity: polarity}, nil
}

// Set evaluates a group of rules against a single value. If any allow
// rules exist, the value must match at least one of them; any matching
// deny rule rejects the value regardless of the allow outcome.
type Set struct {
	allow []Rule
	deny  []Rule
}

// NewSet builds a Set from compiled rules.
func NewSet(rules ...Rule) *Set {
	s := &Set{}
	for _, r := range rules {
		if r.Polarity == Allow {
			s.allow = append(s.allow, r)
		} else {
			s.deny = append(s.deny, r)
		}
	}
	return s
}

// Admit reports whether value passes this rule set. An empty value is
// rejected whenever deny rules are configured, matching the behaviour of
// the upstream AKiPS plugin.
func (s *Set) Admit(value string) bool {
	if len(s.deny) > 0 && value == "" {
		return false
	}
	for _, r := range s.deny {
		if r.Pattern.MatchString(value) {
			return false
		}
	}
	if len(s.allow) == 0 {
		return true
	}
	for _, r := range s.allow {
		if r.Pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// Empty reports whether the set has no rules at all (identity transform).
func (s *Set) Empty() bool {
	return len(s.allow) == 0 && len(s.deny) == 0
}

// GroupFilter decides which device groups get materialized.
// restrict_groups/limit_groups are allow patterns; ignore_groups/
// exclude_groups are deny patterns. The pairs are aliases: both members
// of a pair feed the same list.
type GroupFilter struct {
	set *Set
}

// NewGroupFilter compiles the configured group patterns. Empty patterns
// are skipped; an invalid pattern fails with the offending key named.
func NewGroupFilter(restrict, limit, ignore, exclude string) (*GroupFilter, error) {
	var rules []Rule
	for _, p := range []struct {
		name     string
		pattern  string
		polarity Polarity
	}{
		{"restrict_groups", restrict, Allow},
		{"limit_groups", limit, Allow},
		{"ignore_groups", ignore, Deny},
		{"exclude_groups", exclude, Deny},
	} {
		if p.pattern == "" {
			continue
		}
		r, err := Compile(p.name, p.pattern, p.polarity)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return &GroupFilter{set: NewSet(rules...)}, nil
}

// Admit reports whether the named group survives filtering.
func (f *GroupFilter) Admit(group string) bool {
	return f.set.Admit(group)
}

// Filter returns the subset of groups that survive, preserving order.
func (f *GroupFilter) Filter(groups []string) []string {
	if f.set.Empty() {
		return groups
	}
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		if f.Admit(g) {
			out = append(out, g)
		}
	}
	return out
}

// HostFilter decides host admission from the host name (exclude_hosts)
// and its IP address (exclude_networks). exclude_networks is a plain
// regex over the IP string, never CIDR arithmetic.
type HostFilter struct {
	names *Set
	ips   *Set
}

// NewHostFilter compiles the configured host patterns.
func NewHostFilter(excludeHosts, excludeNetworks string) (*HostFilter, error) {
	names := NewSet()
	ips := NewSet()
	if excludeHosts != "" {
		r, err := Compile("exclude_hosts", excludeHosts, Deny)
		if err != nil {
			return nil, err
		}
		names = NewSet(r)
	}
	if excludeNetworks != "" {
		r, err := Compile("exclude_networks", excludeNetworks, Deny)
		if err != nil {
			return nil, err
		}
		ips = NewSet(r)
	}
	return &HostFilter{names: names, ips: ips}, nil
}

// Admit reports whether the host passes both the name and IP filters.
// Filtering is independent per host; there is no cross-host state.
func (f *HostFilter) Admit(name, ip string) bool {
	return f.names.Admit(name) && f.ips.Admit(ip)
}
