package schema

import (
	"testing"

	"plantregistry/registry"
)

func TestMapKnownLabels(t *testing.T) {
	tests := []struct {
		label string
		tech  registry.Technology
		want  int
	}{
		{"Reservoir", registry.TechHydro, 11},
		{"Run-of-the-River", registry.TechHydro, 12},
		{"Internal Combustion", registry.TechThermal, 21},
		{"Combined Cycle", registry.TechNaturalGas, 32},
		{"Photovoltaic", registry.TechSolar, 41},
	}

	for _, tt := range tests {
		if got := Map(tt.label, tt.tech); got != tt.want {
			t.Errorf("Map(%q, %s) = %d, want %d", tt.label, tt.tech, got, tt.want)
		}
	}
}

func TestMapCaseInsensitive(t *testing.T) {
	if got := Map("reservoir", registry.TechHydro); got != 11 {
		t.Errorf("Map(\"reservoir\") = %d, want 11", got)
	}
}

func TestMapUnknownReserved(t *testing.T) {
	tests := []struct {
		name  string
		label string
		tech  registry.Technology
	}{
		{"none label", "", registry.TechHydro},
		{"off-list label", "Tidal", registry.TechHydro},
		{"label from another technology", "Photovoltaic", registry.TechHydro},
		{"unknown sentinel", registry.LabelUnknown, registry.TechHydro},
		{"unknown technology", "Reservoir", registry.Technology("plasma")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Map(tt.label, tt.tech)
			if got != CodeUnknown {
				t.Errorf("Map(%q, %s) = %d, want reserved %d", tt.label, tt.tech, got, CodeUnknown)
			}
		})
	}
}

func TestMapNeverZero(t *testing.T) {
	for _, tech := range registry.KnownTechnologies() {
		for _, label := range append(registry.LabelSet(tech), "", "garbage") {
			if got := Map(label, tech); got == 0 {
				t.Errorf("Map(%q, %s) = 0; zero must never be emitted", label, tech)
			}
		}
	}
}

func TestMapDeterministic(t *testing.T) {
	first := Map("Reservoir", registry.TechHydro)
	for i := 0; i < 5; i++ {
		if got := Map("Reservoir", registry.TechHydro); got != first {
			t.Fatalf("Map not deterministic: %d then %d", first, got)
		}
	}
}

func TestLabelInverse(t *testing.T) {
	for _, tech := range registry.KnownTechnologies() {
		for _, label := range registry.LabelSet(tech) {
			code := Map(label, tech)
			got, ok := Label(code, tech)
			if !ok || got != label {
				t.Errorf("Label(Map(%q, %s)) = (%q, %v), want (%q, true)", label, tech, got, ok, label)
			}
		}
	}

	if _, ok := Label(CodeUnknown, registry.TechHydro); ok {
		t.Error("Label(CodeUnknown) resolved to a valid label")
	}
}
