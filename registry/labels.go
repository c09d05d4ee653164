package registry

import "plantregistry/normalize"

// LabelUnknown is the sentinel the classification oracle is told to use
// when it cannot decide. It is never a member of a label set.
const LabelUnknown = "Unknown"

// subtypeLabels fixes the closed label set per technology. The
// classification gateway only ever accepts labels from these lists.
var subtypeLabels = map[Technology][]string{
	TechHydro:      {"Reservoir", "Run-of-the-River"},
	TechThermal:    {"Internal Combustion", "Gas Turbine", "Steam Turbine"},
	TechNaturalGas: {"Gas Turbine", "Combined Cycle"},
	TechSolar:      {"Photovoltaic"},
	TechWind:       {"Onshore"},
	TechBiomass:    {"Biomass", "Biogas"},
	TechGeothermal: {"Flash Steam", "Binary Cycle"},
}

// LabelSet returns the fixed subtype label set for a technology.
// Unknown technologies have an empty set, so nothing is ever accepted
// for them.
func LabelSet(tech Technology) []string {
	labels := subtypeLabels[tech]
	out := make([]string, len(labels))
	copy(out, labels)
	return out
}

// ValidLabel reports whether label belongs to the technology's fixed
// label set. Comparison is case- and accent-insensitive so an oracle
// answering "reservoir" still maps onto the canonical "Reservoir".
func ValidLabel(tech Technology, label string) bool {
	_, ok := CanonicalLabel(tech, label)
	return ok
}

// CanonicalLabel resolves a free-form label onto its canonical spelling
// within the technology's label set.
func CanonicalLabel(tech Technology, label string) (string, bool) {
	want := normalize.Normalize(label)
	if want == "" {
		return "", false
	}
	for _, canonical := range subtypeLabels[tech] {
		if normalize.Normalize(canonical) == want {
			return canonical, true
		}
	}
	return "", false
}

func normalizeTechKey(s string) string {
	return normalize.Normalize(s)
}
