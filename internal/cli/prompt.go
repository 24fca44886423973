package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/a2mainz/simblaster/internal/models"
)

const (
	fileRetries  = 3
	eventRetries = 4
)

var (
	positiveResponses = []string{"y", "Y", "j", "J", "yes", "Yes"}
	negativeResponses = []string{"n", "N", "no", "No"}
)

// isInteractive reports whether f is a terminal.
func isInteractive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// prompter reads answers line by line. EOF ends the dialogue.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func (p *prompter) ask(question string) (string, error) {
	fmt.Fprint(p.out, question)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// askYesNo repeats the question until a valid answer is given.
func (p *prompter) askYesNo(question string) (bool, error) {
	answer, err := p.ask(question)
	for {
		if err != nil {
			return false, err
		}
		for _, r := range positiveResponses {
			if answer == r {
				return true, nil
			}
		}
		for _, r := range negativeResponses {
			if answer == r {
				return false, nil
			}
		}
		answer, err = p.ask("You've entered an invalid response! Please try again: ")
	}
}

// askNumber returns 0 when no positive number was given within retries attempts.
func (p *prompter) askNumber(question string, retries int) (int, error) {
	for attempt := 1; ; attempt++ {
		answer, err := p.ask(question + " ")
		if err != nil {
			return 0, err
		}
		if n, err := strconv.Atoi(answer); err == nil && n > 0 {
			return n, nil
		}
		if attempt >= retries {
			return 0, nil
		}
		fmt.Fprintln(p.out, "Your input wasn't a positive number, please try again:")
	}
}

// promptChannels asks for the channels to simulate. The recoil proton is
// implied and prefixed to every entered reaction. Input ending early returns
// the channels entered so far.
func promptChannels(in io.Reader, out io.Writer) ([]models.ChannelRequest, error) {
	p := &prompter{in: bufio.NewReader(in), out: out}
	var channels []models.ChannelRequest

	more, err := p.askYesNo("\nDo you want to enter channels which should be simulated? [y/n]: ")
	for err == nil && more {
		if len(channels) == 0 {
			fmt.Fprintln(out, `Please enter a channel which should be simulated:
Note: The syntax has to be exactly the Pluto syntax for the reaction,
      e.g. "pi0 [g g]" for the decay of a pi0 into two photons.
      The recoil proton is taken into account, type only the desired reaction`)
		}

		var reaction string
		if reaction, err = p.ask("p "); err != nil {
			break
		}
		if reaction == "" {
			fmt.Fprintln(out, "No reaction entered, this channel will be skipped")
		} else if req, ok, askErr := askCounts(p, "p "+reaction); askErr != nil {
			err = askErr
			break
		} else if ok {
			channels = append(channels, req)
		}

		more, err = p.askYesNo("Do you want to enter another channel? [y/n]: ")
	}

	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	fmt.Fprintf(out, "You've entered %d channels for the simulation process\n", len(channels))
	return channels, nil
}

func askCounts(p *prompter, raw string) (models.ChannelRequest, bool, error) {
	files, err := p.askNumber("How many files should be generated for this channel?", fileRetries)
	if err != nil {
		return models.ChannelRequest{}, false, err
	}
	if files == 0 {
		fmt.Fprintln(p.out, "This channel will be skipped")
		return models.ChannelRequest{}, false, nil
	}

	events, err := p.askNumber("How many events should be generated per file?", eventRetries)
	if err != nil {
		return models.ChannelRequest{}, false, err
	}
	if events == 0 {
		fmt.Fprintln(p.out, "This channel will be skipped")
		return models.ChannelRequest{}, false, nil
	}
	return models.ChannelRequest{Raw: raw, Files: files, Events: events}, true, nil
}
