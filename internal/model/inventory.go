package model

import (
	"encoding/json"
	"sort"
)

// Inventory is the hierarchical group/host structure handed to the
// automation runner. The exported surface mirrors the inventory API the
// runner's plugin contract expects: add groups, add hosts, link them,
// set per-host variables.
type Inventory struct {
	groups map[string]map[string]struct{}
	hosts  map[string]map[string]any
}

// The bucket for hosts that belong to no group. Conventional exception
// to the "every host appears under a group" rule.
const Ungrouped = "ungrouped"

// New returns an empty inventory.
func New() *Inventory {
	return &Inventory{
		groups: make(map[string]map[string]struct{}),
		hosts:  make(map[string]map[string]any),
	}
}

// AddGroup ensures a group exists and returns its canonical name.
// Adding an existing group is a no-op.
func (inv *Inventory) AddGroup(name string) string {
	if _, ok := inv.groups[name]; !ok {
		inv.groups[name] = make(map[string]struct{})
	}
	return name
}

// AddHost ensures a host exists. A host without a group membership ends
// up in the ungrouped bucket at marshal time.
func (inv *Inventory) AddHost(name string) {
	if _, ok := inv.hosts[name]; !ok {
		inv.hosts[name] = make(map[string]any)
	}
}

// AddChild records host as a member of group, creating both as needed.
func (inv *Inventory) AddChild(group, host string) {
	inv.AddGroup(group)
	inv.AddHost(host)
	inv.groups[group][host] = struct{}{}
}

// SetVariable sets one variable on a host, creating the host if needed.
// Setting an existing key overwrites it (last applied wins).
func (inv *Inventory) SetVariable(host, key string, value any) {
	inv.AddHost(host)
	inv.hosts[host][key] = value
}

// Groups returns all group names, sorted.
func (inv *Inventory) Groups() []string {
	names := make([]string, 0, len(inv.groups))
	for g := range inv.groups {
		names = append(names, g)
	}
	sort.Strings(names)
	return names
}

// GroupHosts returns the sorted member list of a group, or nil if the
// group does not exist.
func (inv *Inventory) GroupHosts(group string) []string {
	members, ok := inv.groups[group]
	if !ok {
		return nil
	}
	hosts := make([]string, 0, len(members))
	for h := range members {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts
}

// HostVars returns a host's variable map and whether the host exists.
func (inv *Inventory) HostVars(host string) (map[string]any, bool) {
	vars, ok := inv.hosts[host]
	return vars, ok
}

// Hosts returns all host names, sorted.
func (inv *Inventory) Hosts() []string {
	names := make([]string, 0, len(inv.hosts))
	for h := range inv.hosts {
		names = append(names, h)
	}
	sort.Strings(names)
	return names
}

// ungrouped returns hosts that belong to no group, sorted.
func (inv *Inventory) ungrouped() []string {
	var out []string
	for h := range inv.hosts {
		member := false
		for _, hosts := range inv.groups {
			if _, ok := hosts[h]; ok {
				member = true
				break
			}
		}
		if !member {
			out = append(out, h)
		}
	}
	sort.Strings(out)
	return out
}

type groupEntry struct {
	Hosts []string `json:"hosts"`
}

type metaEntry struct {
	Hostvars map[string]map[string]any `json:"hostvars"`
}

type allEntry struct {
	Children []string `json:"children"`
}

// MarshalJSON renders the Ansible dynamic inventory shape: one entry per
// group with its member hosts, an "all" group listing children, and
// _meta.hostvars with every host's variables. All lists are sorted and
// map keys render in encoding/json's sorted order, so two runs over
// identical data produce byte-identical output.
func (inv *Inventory) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(inv.groups)+2)

	children := inv.Groups()
	for _, g := range children {
		out[g] = groupEntry{Hosts: inv.GroupHosts(g)}
	}

	// A remote group may itself be named "ungrouped"; loose hosts merge
	// into it rather than replacing its members.
	if loose := inv.ungrouped(); len(loose) > 0 {
		if existing, ok := out[Ungrouped].(groupEntry); ok {
			merged := append(existing.Hosts, loose...)
			sort.Strings(merged)
			out[Ungrouped] = groupEntry{Hosts: merged}
		} else {
			out[Ungrouped] = groupEntry{Hosts: loose}
			children = append(children, Ungrouped)
			sort.Strings(children)
		}
	}

	hostvars := make(map[string]map[string]any, len(inv.hosts))
	for h, vars := range inv.hosts {
		hostvars[h] = vars
	}
	out["_meta"] = metaEntry{Hostvars: hostvars}
	out["all"] = allEntry{Children: children}

	return json.Marshal(out)
}
