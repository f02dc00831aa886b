package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-yaml"

	"github.com/haught/akips-inventory/internal/akips"
	"github.com/haught/akips-inventory/internal/config"
)

// fakeSource serves canned group and membership data.
type fakeSource struct {
	groups     []string
	members    map[string][]akips.Member
	groupsErr  error
	membersErr error
}

func (f *fakeSource) DeviceGroups(ctx context.Context) ([]string, error) {
	return f.groups, f.groupsErr
}

func (f *fakeSource) GroupMembers(ctx context.Context, group string) ([]akips.Member, error) {
	if f.membersErr != nil {
		return nil, f.membersErr
	}
	return f.members[group], nil
}

func compileRules(t *testing.T, yamlCfg string) *config.Rules {
	t.Helper()
	cfg := &config.Config{}
	if err := yaml.Unmarshal([]byte(yamlCfg), cfg); err != nil {
		t.Fatalf("Unmarshal config: %v", err)
	}
	rules, err := cfg.Compile()
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	return rules
}

func TestBuildExcludesGroups(t *testing.T) {
	source := &fakeSource{
		groups: []string{"Cisco-IOS", "Cisco-NXOS", "Lab"},
		members: map[string][]akips.Member{
			"Cisco-IOS":  {{Name: "sw1", IP: "10.0.0.1"}},
			"Cisco-NXOS": {{Name: "sw2", IP: "10.0.0.2"}},
			"Lab":        {{Name: "lab1", IP: "10.9.0.1"}},
		},
	}
	rules := compileRules(t, `exclude_groups: "^Lab"`)

	inv, err := NewBuilder(source, rules).Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	groups := inv.Groups()
	if len(groups) != 2 || groups[0] != "Cisco-IOS" || groups[1] != "Cisco-NXOS" {
		t.Errorf("Groups() = %v, want [Cisco-IOS Cisco-NXOS]", groups)
	}
	if _, ok := inv.HostVars("lab1"); ok {
		t.Error("Host from an excluded group should not appear")
	}
}

func TestBuildExcludesHosts(t *testing.T) {
	source := &fakeSource{
		groups: []string{"Cisco-IOS"},
		members: map[string][]akips.Member{
			"Cisco-IOS": {
				{Name: "bld1-sw1", IP: "10.0.1.1"},
				{Name: "bld2-sw1", IP: "10.0.2.1"},
			},
		},
	}
	rules := compileRules(t, `exclude_hosts: "bld1.*"`)

	inv, err := NewBuilder(source, rules).Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	hosts := inv.GroupHosts("Cisco-IOS")
	if len(hosts) != 1 || hosts[0] != "bld2-sw1" {
		t.Errorf("GroupHosts(Cisco-IOS) = %v, want [bld2-sw1]", hosts)
	}
}

func TestBuildExcludesNetworks(t *testing.T) {
	source := &fakeSource{
		groups: []string{"Cisco-IOS"},
		members: map[string][]akips.Member{
			"Cisco-IOS": {
				{Name: "sw1", IP: "10.9.0.1"},
				{Name: "sw2", IP: "10.0.0.2"},
			},
		},
	}
	rules := compileRules(t, `exclude_networks: "^10\\.9\\."`)

	inv, err := NewBuilder(source, rules).Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	hosts := inv.GroupHosts("Cisco-IOS")
	if len(hosts) != 1 || hosts[0] != "sw2" {
		t.Errorf("GroupHosts(Cisco-IOS) = %v, want [sw2]", hosts)
	}
}

func TestBuildAssignsAnsibleHost(t *testing.T) {
	source := &fakeSource{
		groups: []string{"Cisco-IOS"},
		members: map[string][]akips.Member{
			"Cisco-IOS": {
				{Name: "sw1", IP: "10.0.0.1"},
				{Name: "sw2", IP: ""},
			},
		},
	}
	rules := compileRules(t, ``)

	inv, err := NewBuilder(source, rules).Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	vars, _ := inv.HostVars("sw1")
	if vars["ansible_host"] != "10.0.0.1" {
		t.Errorf("sw1 ansible_host = %v, want 10.0.0.1", vars["ansible_host"])
	}
	vars, _ = inv.HostVars("sw2")
	if _, ok := vars["ansible_host"]; ok {
		t.Error("Host with an empty IP should not get ansible_host")
	}
}

func TestBuildGroupHostvars(t *testing.T) {
	source := &fakeSource{
		groups: []string{"Cisco-IOS", "Cisco-NXOS"},
		members: map[string][]akips.Member{
			"Cisco-IOS":  {{Name: "sw1", IP: "10.0.0.1"}},
			"Cisco-NXOS": {{Name: "sw2", IP: "10.0.0.2"}},
		},
	}
	rules := compileRules(t, `
group_hostvars:
  IOS:
    ansible_network_os: cisco.ios.ios
`)

	inv, err := NewBuilder(source, rules).Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	vars, _ := inv.HostVars("sw1")
	if vars["ansible_network_os"] != "cisco.ios.ios" {
		t.Errorf("sw1 ansible_network_os = %v, want cisco.ios.ios", vars["ansible_network_os"])
	}
	vars, _ = inv.HostVars("sw2")
	if _, ok := vars["ansible_network_os"]; ok {
		t.Error("sw2 is not in a group matching IOS, should not get the variable")
	}
}

func TestBuildHostRulesWin(t *testing.T) {
	source := &fakeSource{
		groups: []string{"Cisco-IOS"},
		members: map[string][]akips.Member{
			"Cisco-IOS": {{Name: "sw1", IP: "10.0.0.1"}},
		},
	}
	rules := compileRules(t, `
group_hostvars:
  IOS:
    ansible_user: group-user
host_hostvars:
  sw1:
    ansible_user: host-user
`)

	inv, err := NewBuilder(source, rules).Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	vars, _ := inv.HostVars("sw1")
	if vars["ansible_user"] != "host-user" {
		t.Errorf("ansible_user = %v, want host-user (host rule wins)", vars["ansible_user"])
	}
}

func TestBuildSkipsEmptyGroupNames(t *testing.T) {
	source := &fakeSource{
		groups: []string{"", "Cisco-IOS"},
		members: map[string][]akips.Member{
			"Cisco-IOS": {{Name: "sw1", IP: "10.0.0.1"}},
		},
	}
	rules := compileRules(t, ``)

	inv, err := NewBuilder(source, rules).Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if groups := inv.Groups(); len(groups) != 1 || groups[0] != "Cisco-IOS" {
		t.Errorf("Groups() = %v, want [Cisco-IOS]", groups)
	}
}

func TestBuildAbortsOnGroupFetchError(t *testing.T) {
	source := &fakeSource{groupsErr: errors.New("connection refused")}
	rules := compileRules(t, ``)

	_, err := NewBuilder(source, rules).Build(context.Background())
	if err == nil {
		t.Fatal("Build() should fail when the group list cannot be fetched")
	}
	if !strings.Contains(err.Error(), "fetching device groups") {
		t.Errorf("Error = %v", err)
	}
}

func TestBuildAbortsOnMemberFetchError(t *testing.T) {
	source := &fakeSource{
		groups:     []string{"Cisco-IOS"},
		membersErr: errors.New("connection reset"),
	}
	rules := compileRules(t, ``)

	if _, err := NewBuilder(source, rules).Build(context.Background()); err == nil {
		t.Fatal("Build() should fail when a membership query fails")
	}
}

func TestBuildIdempotent(t *testing.T) {
	source := &fakeSource{
		groups: []string{"Cisco-IOS", "Cisco-NXOS"},
		members: map[string][]akips.Member{
			"Cisco-IOS":  {{Name: "sw1", IP: "10.0.0.1"}, {Name: "sw3", IP: "10.0.0.3"}},
			"Cisco-NXOS": {{Name: "sw2", IP: "10.0.0.2"}},
		},
	}
	rules := compileRules(t, `
group_hostvars:
  IOS:
    ansible_network_os: cisco.ios.ios
`)
	builder := NewBuilder(source, rules)

	first, err := builder.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	second, err := builder.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	a, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	b, err := json.Marshal(second)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Errorf("Two builds over the same data differ:\n%s\n%s", a, b)
	}
}
