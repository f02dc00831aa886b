// Package inventory runs the fetch, filter, assign, emit pipeline.
// One pass, no state between runs.
package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/haught/akips-inventory/internal/akips"
	"github.com/haught/akips-inventory/internal/config"
	"github.com/haught/akips-inventory/internal/log"
	"github.com/haught/akips-inventory/internal/model"
)

// Source supplies the raw group and membership data. *akips.Client is
// the production implementation; tests inject fakes.
type Source interface {
	DeviceGroups(ctx context.Context) ([]string, error)
	GroupMembers(ctx context.Context, group string) ([]akips.Member, error)
}

// Builder materializes an inventory from a source and compiled rules.
type Builder struct {
	source Source
	rules  *config.Rules
}

// NewBuilder wires a source to the compiled filter and variable rules.
func NewBuilder(source Source, rules *config.Rules) *Builder {
	return &Builder{source: source, rules: rules}
}

// Build fetches the group list, materializes every admitted group, and
// attaches variables to every admitted host. Fetch failures abort the
// run; no partial inventory is returned.
func (b *Builder) Build(ctx context.Context) (*model.Inventory, error) {
	runID := uuid.New().String()
	log.Debug("Building inventory", "run_id", runID)

	groups, err := b.source.DeviceGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching device groups: %w", err)
	}

	inv := model.New()
	admitted := make([]string, 0, len(groups))

	for _, group := range groups {
		if group == "" {
			log.Warn("Skipping empty group name from api", "run_id", runID)
			continue
		}
		if !b.rules.Groups.Admit(group) {
			log.Debug("Excluding group", "group", group)
			continue
		}
		inv.AddGroup(group)
		admitted = append(admitted, group)

		members, err := b.source.GroupMembers(ctx, group)
		if err != nil {
			return nil, err
		}

		for _, m := range members {
			if !b.rules.Hosts.Admit(m.Name, m.IP) {
				log.Debug("Excluding host", "host", m.Name, "ip", m.IP, "group", group)
				continue
			}
			inv.AddHost(m.Name)
			inv.AddChild(group, m.Name)
			if m.IP != "" {
				inv.SetVariable(m.Name, "ansible_host", m.IP)
			}
			b.rules.Assigner.ApplyGroup(inv, m.Name, group)
		}
	}

	// Host rules run after every group rule, so a host_hostvars match
	// always wins a key collision.
	for _, host := range inv.Hosts() {
		b.rules.Assigner.ApplyHost(inv, host)
	}

	log.Info("Inventory built", "run_id", runID,
		"groups", len(admitted), "hosts", len(inv.Hosts()))
	return inv, nil
}
