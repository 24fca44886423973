package channel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/a2mainz/simblaster/internal/models"
	"github.com/a2mainz/simblaster/internal/sim"
	"github.com/a2mainz/simblaster/internal/sim/decay"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantID     string
		wantKind   models.ChannelKind
		advisories int
	}{
		{"cocktail", "cocktail", "cocktail", models.KindSpectrum, 0},
		{"cocktail mixed case with suffix", "Cocktail_beamtime", "cocktail", models.KindSpectrum, 0},
		{"gun", "gun: pi0", "pi0-gun", models.KindGun, 0},
		{"gun upper case", "GUN:eta ", "eta-gun", models.KindGun, 0},
		{"gun with spaces", "gun: pi0 eta", "pi0-eta-gun", models.KindGun, 0},
		{"reaction with proton", "p pi0 [g g]", "pi0_2g", models.KindReaction, 0},
		{"quoted reaction", `"p omega [pi0 [g g] g]"`, "omega_pi0g_3g", models.KindReaction, 0},
		{"reaction without proton", "pi0 [g g]", "pi0_2g", models.KindReaction, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chk := require.New(t)
			ch, advisories, err := Resolve(tt.raw, 1)
			chk.NoError(err)
			chk.Equal(tt.wantID, ch.ID)
			chk.Equal(tt.wantKind, ch.Kind)
			chk.Len(advisories, tt.advisories)
		})
	}
}

func TestResolveKeepsReactionVerbatim(t *testing.T) {
	ch, _, err := Resolve(`"p pi0  [g g]"`, 1)
	require.NoError(t, err)
	require.Equal(t, "p pi0 [g g]", ch.Reaction)
}

func TestResolveMissingProtonStillResolves(t *testing.T) {
	chk := require.New(t)
	ch, advisories, err := Resolve("eta [g g]", 1)
	chk.NoError(err)
	chk.Equal("eta_2g", ch.ID)
	chk.Len(advisories, 1)
	chk.Contains(advisories[0].Message, "recoil proton")
}

func TestResolveMalformed(t *testing.T) {
	chk := require.New(t)

	_, _, err := Resolve("p pi0 [g g", 1)
	var resErr *sim.ResolutionError
	chk.True(errors.As(err, &resErr))
	chk.True(errors.Is(err, decay.ErrMalformed))
	chk.Equal(sim.ExitResolution, sim.ExitCode(err))
}

func TestResolveGunWithoutParticle(t *testing.T) {
	for _, raw := range []string{"gun:", "gun:   ", `"GUN: "`} {
		t.Run(raw, func(t *testing.T) {
			chk := require.New(t)
			ch, advisories, err := Resolve(raw, 1)
			chk.NoError(err)
			chk.Equal("-gun", ch.ID)
			chk.Equal(models.KindGun, ch.Kind)
			chk.Len(advisories, 1)
			chk.Contains(advisories[0].Message, "no particle")
		})
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	raws := []string{"cocktail", "gun: pi0", "p pi0 [g g]", "p omega [pi0 [g g] g]", "eta [e+ e- g]", "p etap [pi0 pi0 eta [g g]]"}

	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.SampledFrom(raws).Draw(t, "raw")
		level := rapid.IntRange(0, 3).Draw(t, "level")

		first, _, err := Resolve(raw, level)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", raw, err)
		}
		second, _, err := Resolve(raw, level)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", raw, err)
		}
		if first != second {
			t.Fatalf("Resolve(%q, %d) not idempotent: %+v vs %+v", raw, level, first, second)
		}
	})
}

func TestResolveDistinctChannelsDoNotCollide(t *testing.T) {
	raws := []string{"cocktail", "gun: pi0", "gun: eta", "p pi0 [g g]", "p eta [g g]", "p omega [pi0 [g g] g]", "p eta [e+ e- g]"}
	seen := make(map[string]string)
	for _, raw := range raws {
		ch, _, err := Resolve(raw, 1)
		require.NoError(t, err)
		if other, ok := seen[ch.ID]; ok {
			t.Fatalf("%q and %q both resolve to %q", raw, other, ch.ID)
		}
		seen[ch.ID] = raw
	}
}
