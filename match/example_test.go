package match_test

import (
	"fmt"

	"plantregistry/match"
	"plantregistry/registry"
)

func ExamplePartialRatio() {
	score := match.PartialRatio("coca codo sinclair", "central hidroelectrica coca codo sinclair")
	fmt.Println(score)
	// Output: 100
}

func ExampleMatcher_Match() {
	sources := []registry.PlantRecord{
		{ID: "s1", Name: "Central Sopladora", Company: "CELEC EP", Technology: registry.TechHydro},
		{ID: "s2", Name: "Coca Codo Sinclair", Technology: registry.TechHydro},
	}
	targets := []registry.PlantRecord{
		{ID: "t1", Name: "central sopladora", Company: "CELEC EP", Technology: registry.TechHydro},
		{ID: "t2", Name: "Central Hidroelectrica Coca Codo Sinclair", Technology: registry.TechHydro},
	}

	matcher := match.New(match.DefaultConfig())
	for _, result := range matcher.Match(sources, targets) {
		fmt.Printf("%s -> %s (%s)\n", result.SourceID, result.TargetID, result.Method)
	}
	// Output:
	// s1 -> t1 (exact)
	// s2 -> t2 (fuzzy)
}
