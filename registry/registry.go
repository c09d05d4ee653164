// Package registry defines the canonical power-plant record model shared
// by the matching, classification and export stages.
package registry

// Technology is the generation category of a plant. Matching and
// classification never cross categories.
type Technology string

const (
	TechHydro      Technology = "hydro"
	TechThermal    Technology = "thermal"
	TechNaturalGas Technology = "natural_gas"
	TechSolar      Technology = "solar"
	TechWind       Technology = "wind"
	TechBiomass    Technology = "biomass"
	TechGeothermal Technology = "geothermal"
)

// MatchMethod tags how a record was joined to its counterpart.
type MatchMethod string

const (
	MatchExact     MatchMethod = "exact"
	MatchFuzzy     MatchMethod = "fuzzy"
	MatchUnmatched MatchMethod = "unmatched"
)

// SubtypeNone is the explicit "no subtype resolved" sentinel.
const SubtypeNone = ""

// PlantRecord is one plant as ingested from a source registry.
// Only the orchestrator mutates a record after ingestion: the matcher
// and the classification gateway return results that the orchestrator
// applies (match reference and subtype respectively).
type PlantRecord struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	Company           string      `json:"company"`
	Technology        Technology  `json:"technology"`
	Subtype           string      `json:"subtype,omitempty"`
	SubtypeConfidence float64     `json:"subtype_confidence,omitempty"`
	Source            string      `json:"source"`
	MatchRef          string      `json:"match_ref,omitempty"`
	MatchMethod       MatchMethod `json:"match_method,omitempty"`
	MatchScore        int         `json:"match_score,omitempty"`
}

// KnownTechnologies lists every recognized technology category.
func KnownTechnologies() []Technology {
	return []Technology{
		TechHydro,
		TechThermal,
		TechNaturalGas,
		TechSolar,
		TechWind,
		TechBiomass,
		TechGeothermal,
	}
}

// ParseTechnology maps free-form category strings from source registries
// onto the technology enum. Unrecognized values come back as ("", false);
// the caller decides whether that is a data error or a skip.
func ParseTechnology(s string) (Technology, bool) {
	switch normalizeTechKey(s) {
	case "hydro", "hydroelectric", "hidroelectrica", "hidraulica":
		return TechHydro, true
	case "thermal", "thermoelectric", "termoelectrica", "termica", "diesel", "fuel oil", "bunker":
		return TechThermal, true
	case "natural gas", "natural_gas", "gas natural", "gas":
		return TechNaturalGas, true
	case "solar", "photovoltaic", "fotovoltaica":
		return TechSolar, true
	case "wind", "eolica":
		return TechWind, true
	case "biomass", "biomasa", "biogas":
		return TechBiomass, true
	case "geothermal", "geotermica":
		return TechGeothermal, true
	}
	return "", false
}
