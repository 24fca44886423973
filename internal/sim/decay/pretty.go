package decay

import (
	"fmt"
	"strings"
)

// symbols is applied in order; longer names must come before their prefixes.
var symbols = []struct{ from, to string }{
	{"dilepton", "γ*"},
	{"dimuon", "γ*"},
	{"pi", "π"},
	{"etap", "eta'"},
	{"eta", "η"},
	{"mu", "µ"},
	{"omega", "ω"},
	{"rho", "ρ"},
	{"phi", "φ"},
	{"Sigma", "Σ"},
	{"Delta", "Δ"},
	{"Lambda", "Λ"},
	{"Omega", "Ω"},
	{"Xi", "Ξ"},
	{"g", "γ"},
	{"0", "⁰"},
	{"+", "⁺"},
	{"-", "⁻"},
}

// Pretty renders a canonical id with particle symbols for the plan table.
// With short set only the initial and final states are shown.
func Pretty(id string, short bool) string {
	channel := id
	for _, s := range symbols {
		channel = strings.ReplaceAll(channel, s.from, s.to)
	}

	if !short {
		return strings.ReplaceAll(channel, "_", " --> ")
	}

	parts := strings.Split(channel, "_")
	if len(parts) < 2 {
		return "  " + channel
	}
	return fmt.Sprintf("  %-4s -->  %s", parts[0], parts[len(parts)-1])
}
