// Package filescan derives existing simulation file numbers from the output
// directories so that new files continue the numbering instead of
// overwriting earlier results.
package filescan

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Stage prefixes of the simulation file names.
const (
	GeneratedPrefix = "mcgen"
	SimulatedPrefix = "g4sim"
	LogPrefix       = "sim"
)

// FileName returns "<prefix>_<channel>_<NNNN>.<ext>".
func FileName(prefix, channelID string, sequence int, ext string) string {
	return fmt.Sprintf("%s_%s_%04d.%s", prefix, channelID, sequence, ext)
}

// MaxSequence returns the highest sequence number among files in dir named
// "<prefix>_<channelID>_<digits>.<ext>". Unrelated names and digit groups that
// do not parse are ignored. It returns 0 when nothing matches.
func MaxSequence(dir, prefix, channelID string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	re := regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `_` + regexp.QuoteMeta(channelID) + `_(\d+)\.[A-Za-z0-9]+$`)

	highest := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := re.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest, nil
}

// Mismatch describes generated and simulated files of one channel being out of
// step. It is an operator advisory: the two stages run as separate queue jobs
// and may legitimately differ mid-campaign.
type Mismatch struct {
	Channel string
	GenMax  int
	SimMax  int
}

// Ahead names the stage with more files.
func (m *Mismatch) Ahead() string {
	if m.SimMax > m.GenMax {
		return "simulated"
	}
	return "generated"
}

// Behind names the stage with fewer files.
func (m *Mismatch) Behind() string {
	if m.SimMax > m.GenMax {
		return "generated"
	}
	return "simulated"
}

func (m *Mismatch) String() string {
	return fmt.Sprintf("there are more %s files (%d) than %s files (%d) for channel %s",
		m.Ahead(), max(m.GenMax, m.SimMax), m.Behind(), min(m.GenMax, m.SimMax), m.Channel)
}

// CheckConsistency returns a Mismatch when genMax and simMax differ, nil otherwise.
func CheckConsistency(genMax, simMax int, channelID string) *Mismatch {
	if genMax == simMax {
		return nil
	}
	return &Mismatch{Channel: channelID, GenMax: genMax, SimMax: simMax}
}

// ChannelCount summarizes the files of one channel found by ScanChannels.
type ChannelCount struct {
	Channel     string
	Files       int
	MaxSequence int
}

// ScanResult contains the per-channel file counts of one stage directory.
type ScanResult struct {
	Channels      []ChannelCount // sorted by channel id
	CocktailFiles int
	GunFiles      int
}

var channelFile = regexp.MustCompile(`^(.+?)_(\S+)_(\d+)\.root$`)

// ScanChannels groups the files in dir that carry prefix by channel id.
// Cocktail and particle gun files are counted separately.
func ScanChannels(dir, prefix string) (ScanResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ScanResult{}, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var result ScanResult
	counts := make(map[string]*ChannelCount)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := channelFile.FindStringSubmatch(entry.Name())
		if m == nil || m[1] != prefix {
			continue
		}

		id := m[2]
		lower := strings.ToLower(id)
		switch {
		case strings.Contains(lower, "cocktail"):
			result.CocktailFiles++
			continue
		case strings.Contains(lower, "gun"):
			result.GunFiles++
			continue
		}

		n, err := strconv.Atoi(m[3])
		if err != nil {
			continue
		}
		c, ok := counts[id]
		if !ok {
			c = &ChannelCount{Channel: id}
			counts[id] = c
		}
		c.Files++
		if n > c.MaxSequence {
			c.MaxSequence = n
		}
	}

	for _, c := range counts {
		result.Channels = append(result.Channels, *c)
	}
	sort.Slice(result.Channels, func(i, j int) bool {
		return result.Channels[i].Channel < result.Channels[j].Channel
	})
	return result, nil
}
