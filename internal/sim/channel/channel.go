// Package channel classifies raw channel requests and normalizes them to
// canonical channel ids.
package channel

import (
	"regexp"
	"strings"

	"github.com/a2mainz/simblaster/internal/models"
	"github.com/a2mainz/simblaster/internal/sim"
	"github.com/a2mainz/simblaster/internal/sim/decay"
	"github.com/a2mainz/simblaster/internal/util/sanitize"
)

// CocktailID is the canonical id of every spectrum channel.
const CocktailID = "cocktail"

const (
	gunPrefix    = "gun:"
	gunSuffix    = "-gun"
	protonMarker = "p "
)

// file names must survive the shell commands they end up in
var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9+\-.'*]+`)

// kindResolver resolves one channel kind. The first entry whose match
// returns true wins.
type kindResolver struct {
	kind    models.ChannelKind
	match   func(lower string) bool
	resolve func(raw string, level int) (string, []sim.Advisory, error)
}

var resolvers = []kindResolver{
	{
		kind:    models.KindSpectrum,
		match:   func(lower string) bool { return strings.HasPrefix(lower, CocktailID) },
		resolve: resolveSpectrum,
	},
	{
		kind:    models.KindGun,
		match:   func(lower string) bool { return strings.HasPrefix(lower, gunPrefix) },
		resolve: resolveGun,
	},
	{
		kind:    models.KindReaction,
		match:   func(string) bool { return true },
		resolve: resolveReaction,
	},
}

// Resolve classifies raw and derives its canonical id at the given decay
// detail level. Identical input always yields the identical id.
func Resolve(raw string, level int) (models.ResolvedChannel, []sim.Advisory, error) {
	clean := sanitize.SanitizeChannel(raw)
	lower := strings.ToLower(clean)

	for _, r := range resolvers {
		if !r.match(lower) {
			continue
		}
		id, advisories, err := r.resolve(clean, level)
		if err != nil {
			return models.ResolvedChannel{}, advisories, &sim.ResolutionError{Raw: raw, Err: err}
		}
		return models.ResolvedChannel{ID: id, Kind: r.kind, Reaction: clean}, advisories, nil
	}

	// unreachable: the reaction resolver matches everything
	return models.ResolvedChannel{}, nil, &sim.ResolutionError{Raw: raw, Err: decay.ErrMalformed}
}

func resolveSpectrum(string, int) (string, []sim.Advisory, error) {
	return CocktailID, nil, nil
}

// resolveGun tolerates a gun without a particle: the id is then just "-gun"
// and the operator is told.
func resolveGun(raw string, _ int) (string, []sim.Advisory, error) {
	particle := unsafeChars.ReplaceAllString(strings.TrimSpace(raw[len(gunPrefix):]), "-")
	if strings.Trim(particle, "-") == "" {
		return gunSuffix, []sim.Advisory{{
			Channel: raw,
			Message: "particle gun names no particle",
		}}, nil
	}
	return particle + gunSuffix, nil, nil
}

// resolveReaction strips the recoil proton. A missing proton is tolerated and
// reported: the generator still implies it.
func resolveReaction(raw string, level int) (string, []sim.Advisory, error) {
	var advisories []sim.Advisory
	reaction := raw
	if strings.HasPrefix(reaction, protonMarker) {
		reaction = reaction[len(protonMarker):]
	} else {
		advisories = append(advisories, sim.Advisory{
			Channel: raw,
			Message: "recoil proton missing in decay string",
		})
	}

	id, err := decay.Canonical(reaction, level)
	if err != nil {
		return "", advisories, err
	}
	return id, advisories, nil
}
