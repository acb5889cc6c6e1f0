package catalog

import "github.com/tunewise/tunewise/internal/models"

// defaultRecipes are used when no catalog file exists on disk.
func defaultRecipes() []models.AutomationRecipe {
	return []models.AutomationRecipe{
		{
			ID:               "recipe-competitive-gaming",
			Name:             "competitive-gaming",
			TriggerProcesses: []string{"cs2.exe", "discord.exe"},
			RegistryChanges: map[string]string{
				"gpu/priority_mode":     "performance",
				"system/power_profile":  "maximum",
				"network/nagle_disable": "true",
			},
			ServiceStates: map[string]bool{
				"search-indexer": false,
				"update-agent":   false,
			},
			ResourceAlloc: map[models.ResourceType]float64{
				models.ResourceGPU:     0.8,
				models.ResourceCPU:     0.6,
				models.ResourceNetwork: 0.5,
			},
			CompanionApps: []string{"gameoverlay.exe"},
		},
		{
			ID:               "recipe-gaming",
			Name:             "gaming",
			TriggerProcesses: []string{"cs2.exe"},
			RegistryChanges: map[string]string{
				"gpu/priority_mode": "performance",
			},
			ServiceStates: map[string]bool{
				"search-indexer": false,
			},
			ResourceAlloc: map[models.ResourceType]float64{
				models.ResourceGPU: 0.7,
			},
		},
		{
			ID:               "recipe-development",
			Name:             "development",
			TriggerProcesses: []string{"code.exe"},
			RegistryChanges: map[string]string{
				"cpu/scheduler_profile": "throughput",
			},
			ServiceStates: map[string]bool{
				"update-agent": false,
			},
			ResourceAlloc: map[models.ResourceType]float64{
				models.ResourceCPU: 0.6,
				models.ResourceRAM: 0.5,
			},
		},
		{
			ID:               "recipe-streaming",
			Name:             "streaming",
			TriggerProcesses: []string{"obs64.exe"},
			RegistryChanges: map[string]string{
				"network/qos_profile": "streaming",
			},
			ServiceStates: map[string]bool{
				"telemetry-relay": false,
			},
			ResourceAlloc: map[models.ResourceType]float64{
				models.ResourceNetwork: 0.6,
				models.ResourceGPU:     0.4,
			},
		},
		{
			// No triggers: matches any workload, so it is the profile in
			// effect whenever nothing more specific is running.
			ID:   "recipe-universal",
			Name: "universal",
			RegistryChanges: map[string]string{
				"system/power_profile": "balanced",
			},
		},
	}
}

// Default builds the built-in catalog.
func Default() *Catalog {
	c, err := New(defaultRecipes())
	if err != nil {
		// The built-in recipes are validated by tests; this cannot
		// happen at runtime.
		panic(err)
	}
	return c
}
