package applier

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tunewise/tunewise/internal/models"
)

// PlanFromRecipe expands a recipe into an ordered configuration plan.
// Map-backed recipe sections are emitted in sorted key order so the plan
// is deterministic for a given recipe.
func PlanFromRecipe(r models.AutomationRecipe) models.ConfigurationPlan {
	plan := models.ConfigurationPlan{
		Name:       r.Name,
		RecipeName: r.Name,
		CreatedAt:  time.Now().UTC(),
	}

	for _, keyPath := range sortedKeys(r.RegistryChanges) {
		domain, key := splitKeyPath(keyPath)
		plan.Changes = append(plan.Changes, models.ConfigChange{
			ID:       uuid.New().String(),
			Type:     models.ChangeRegistry,
			Domain:   domain,
			Key:      key,
			Value:    r.RegistryChanges[keyPath],
			Source:   r.Name,
			Priority: 1,
		})
	}

	services := make([]string, 0, len(r.ServiceStates))
	for name := range r.ServiceStates {
		services = append(services, name)
	}
	sort.Strings(services)
	for _, name := range services {
		value := "disabled"
		if r.ServiceStates[name] {
			value = "enabled"
		}
		plan.Changes = append(plan.Changes, models.ConfigChange{
			ID:       uuid.New().String(),
			Type:     models.ChangeService,
			Domain:   "service",
			Key:      name,
			Value:    value,
			Source:   r.Name,
			Priority: 1,
		})
	}

	resources := make([]string, 0, len(r.ResourceAlloc))
	for res := range r.ResourceAlloc {
		resources = append(resources, string(res))
	}
	sort.Strings(resources)
	for _, res := range resources {
		plan.Changes = append(plan.Changes, models.ConfigChange{
			ID:       uuid.New().String(),
			Type:     models.ChangeResource,
			Domain:   "resource",
			Key:      res,
			Value:    fmt.Sprintf("%.2f", r.ResourceAlloc[models.ResourceType(res)]),
			Source:   r.Name,
			Priority: 1,
		})
	}

	for _, app := range r.CompanionApps {
		plan.Changes = append(plan.Changes, models.ConfigChange{
			ID:       uuid.New().String(),
			Type:     models.ChangeCompanion,
			Domain:   "companion",
			Key:      app,
			Value:    "launch",
			Source:   r.Name,
			Priority: 1,
		})
	}

	return plan
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// splitKeyPath splits "domain/key" registry paths; a bare key falls into
// the system domain.
func splitKeyPath(path string) (domain, key string) {
	if i := strings.Index(path, "/"); i > 0 {
		return path[:i], path[i+1:]
	}
	return "system", path
}
