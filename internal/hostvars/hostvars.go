package hostvars

import (
	"fmt"
	"regexp"

	"github.com/goccy/go-yaml"
)

// Rule pairs a pattern with the variables merged into every matching
// host. Matching is case-insensitive, like the upstream plugin.
type Rule struct {
	// Name is the pattern as written in the configuration file.
	Name    string
	Pattern *regexp.Regexp
	Vars    map[string]any
}

// ParseRules converts an ordered YAML mapping of pattern -> variables
// into compiled rules. Document order is preserved so that overlapping
// rules merge deterministically (later rule wins per key). key names the
// configuration section for error messages.
func ParseRules(key string, raw yaml.MapSlice) ([]Rule, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	rules := make([]Rule, 0, len(raw))
	for _, item := range raw {
		pattern, ok := item.Key.(string)
		if !ok {
			return nil, fmt.Errorf("%s: rule key %v is not a string", key, item.Key)
		}
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("%s[%s]: invalid regex: %w", key, pattern, err)
		}
		vars, err := toVars(item.Value)
		if err != nil {
			return nil, fmt.Errorf("%s[%s]: %w", key, pattern, err)
		}
		rules = append(rules, Rule{Name: pattern, Pattern: re, Vars: vars})
	}
	return rules, nil
}

// toVars normalizes the YAML value of a rule into a flat variable map.
// Values pass through as configured; no validation beyond shape.
func toVars(v any) (map[string]any, error) {
	switch m := v.(type) {
	case map[string]any:
		return m, nil
	case yaml.MapSlice:
		out := make(map[string]any, len(m))
		for _, item := range m {
			k, ok := item.Key.(string)
			if !ok {
				return nil, fmt.Errorf("variable name %v is not a string", item.Key)
			}
			out[k] = item.Value
		}
		return out, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("expected a mapping of variables, got %T", v)
	}
}

// VarSetter is the slice of the inventory the assigner writes through.
type VarSetter interface {
	SetVariable(host, key string, value any)
}

// Assigner applies group_hostvars and host_hostvars rules to admitted
// hosts. Group rules are evaluated against each group a host belongs to,
// host rules against the host's own name; every match merges its
// variables, later matches overriding earlier ones per key.
type Assigner struct {
	groupRules []Rule
	hostRules  []Rule
}

// NewAssigner builds an assigner from compiled rule lists.
func NewAssigner(groupRules, hostRules []Rule) *Assigner {
	return &Assigner{groupRules: groupRules, hostRules: hostRules}
}

// ApplyGroup merges variables from every group rule matching group into
// host.
func (a *Assigner) ApplyGroup(inv VarSetter, host, group string) {
	for _, r := range a.groupRules {
		if r.Pattern.MatchString(group) {
			for k, v := range r.Vars {
				inv.SetVariable(host, k, v)
			}
		}
	}
}

// ApplyHost merges variables from every host rule matching the host's
// own name.
func (a *Assigner) ApplyHost(inv VarSetter, host string) {
	for _, r := range a.hostRules {
		if r.Pattern.MatchString(host) {
			for k, v := range r.Vars {
				inv.SetVariable(host, k, v)
			}
		}
	}
}
