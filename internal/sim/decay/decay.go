// Package decay turns Pluto reaction strings such as "omega [pi0 [g g] g]" into
// the canonical channel ids used in simulation file names.
//
// A canonical id lists the initial state, the intermediate states up to the
// requested detail level and the final state, joined with underscores.
// Repeated particles within one state are counted: "omega [pi0 [g g] g]" at
// level 1 becomes "omega_pi0g_3g".
package decay

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrMalformed is wrapped by every parse failure.
var ErrMalformed = errors.New("malformed decay string")

var particleName = regexp.MustCompile(`^[A-Za-z0-9+\-.'*]+$`)

type particle struct {
	name     string
	products []*particle
}

// Canonical returns the canonical id of reaction at the given detail level.
// Level 0 keeps only the initial and final states.
func Canonical(reaction string, level int) (string, error) {
	top, err := parse(reaction)
	if err != nil {
		return "", err
	}
	if level < 0 {
		level = 0
	}

	depth := maxDepth(top)
	parts := []string{formatState(state(top, 0))}
	for d := 1; d <= level && d < depth; d++ {
		parts = append(parts, formatState(state(top, d)))
	}
	if depth > 0 {
		parts = append(parts, formatState(state(top, depth)))
	}

	return strings.Join(parts, "_"), nil
}

func parse(reaction string) ([]*particle, error) {
	spaced := strings.NewReplacer("[", " [ ", "]", " ] ").Replace(reaction)
	tokens := strings.Fields(spaced)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: empty reaction", ErrMalformed)
	}

	list, rest, err := parseList(tokens, false)
	if err != nil {
		return nil, err
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("%w: unexpected %q", ErrMalformed, rest[0])
	}
	return list, nil
}

// parseList consumes tokens up to the closing bracket (nested) or the end of
// input (top level) and returns the remaining tokens.
func parseList(tokens []string, nested bool) ([]*particle, []string, error) {
	var list []*particle
	for len(tokens) > 0 {
		tok := tokens[0]
		tokens = tokens[1:]

		switch tok {
		case "[":
			if len(list) == 0 || list[len(list)-1].products != nil {
				return nil, nil, fmt.Errorf("%w: decay products without a parent particle", ErrMalformed)
			}
			products, rest, err := parseList(tokens, true)
			if err != nil {
				return nil, nil, err
			}
			if len(products) == 0 {
				return nil, nil, fmt.Errorf("%w: empty decay of %s", ErrMalformed, list[len(list)-1].name)
			}
			list[len(list)-1].products = products
			tokens = rest
		case "]":
			if !nested {
				return nil, nil, fmt.Errorf("%w: unmatched ']'", ErrMalformed)
			}
			return list, tokens, nil
		default:
			if !particleName.MatchString(tok) {
				return nil, nil, fmt.Errorf("%w: invalid particle name %q", ErrMalformed, tok)
			}
			list = append(list, &particle{name: tok})
		}
	}

	if nested {
		return nil, nil, fmt.Errorf("%w: missing ']'", ErrMalformed)
	}
	return list, nil, nil
}

func maxDepth(list []*particle) int {
	depth := 0
	for _, p := range list {
		if p.products == nil {
			continue
		}
		if d := 1 + maxDepth(p.products); d > depth {
			depth = d
		}
	}
	return depth
}

// state returns the particle names after expanding decays down to depth.
func state(list []*particle, depth int) []string {
	var names []string
	for _, p := range list {
		if depth > 0 && p.products != nil {
			names = append(names, state(p.products, depth-1)...)
			continue
		}
		names = append(names, p.name)
	}
	return names
}

// formatState counts repeated particles in order of first appearance.
func formatState(names []string) string {
	counts := make(map[string]int)
	var order []string
	for _, n := range names {
		if counts[n] == 0 {
			order = append(order, n)
		}
		counts[n]++
	}

	var sb strings.Builder
	for _, n := range order {
		if c := counts[n]; c > 1 {
			sb.WriteString(strconv.Itoa(c))
		}
		sb.WriteString(n)
	}
	return sb.String()
}
