// Package schema translates resolved subtype labels into the shared
// numeric coding scheme used by downstream consumers.
package schema

import "plantregistry/registry"

// CodeUnknown is the reserved code for unresolved or off-list subtypes.
// It is never a valid technology code, so an unclassified plant can
// never be mistaken for a classified one.
const CodeUnknown = 99

// codeTables fixes the per-technology label codes. Codes start at the
// technology's base so a code alone identifies both technology and
// subtype.
var codeTables = map[registry.Technology]map[string]int{
	registry.TechHydro: {
		"Reservoir":        11,
		"Run-of-the-River": 12,
	},
	registry.TechThermal: {
		"Internal Combustion": 21,
		"Gas Turbine":         22,
		"Steam Turbine":       23,
	},
	registry.TechNaturalGas: {
		"Gas Turbine":    31,
		"Combined Cycle": 32,
	},
	registry.TechSolar: {
		"Photovoltaic": 41,
	},
	registry.TechWind: {
		"Onshore": 51,
	},
	registry.TechBiomass: {
		"Biomass": 61,
		"Biogas":  62,
	},
	registry.TechGeothermal: {
		"Flash Steam":  71,
		"Binary Cycle": 72,
	},
}

// Map resolves a subtype label to its numeric code. Total and
// deterministic: any label outside the technology's fixed set,
// including the empty "none" label, maps to CodeUnknown.
func Map(label string, tech registry.Technology) int {
	canonical, ok := registry.CanonicalLabel(tech, label)
	if !ok {
		return CodeUnknown
	}
	code, ok := codeTables[tech][canonical]
	if !ok {
		return CodeUnknown
	}
	return code
}

// Label is the inverse lookup, used by exporters to annotate codes.
// CodeUnknown and unassigned codes come back as ("", false).
func Label(code int, tech registry.Technology) (string, bool) {
	for label, c := range codeTables[tech] {
		if c == code {
			return label, true
		}
	}
	return "", false
}
