// Package config loads the simulation settings file and channel lists.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/a2mainz/simblaster/internal/models"
	"github.com/a2mainz/simblaster/internal/sim"
	"github.com/a2mainz/simblaster/internal/sim/pipeline"
	"github.com/a2mainz/simblaster/internal/sim/queue"
)

// Settings is the run configuration.
//
// INI format:
//
//	[settings]
//	output_path = ~/simulation
//	log_data = log
//	mcgen_data = mcgen
//	geant_data = g4sim
//	a2_geant_path = ~/a2geant
//	generator = Ant-pluto
//	emin = 1420
//	emax = 1580
//	queue = dflt
//	walltime = 12:00:00
//
//	[channels]
//	"p pi0 [g g]" 10 100000
//	cocktail 20 50000
//	"gun: pi0" 5 10000
type Settings struct {
	OutputPath  string `ini:"output_path"`
	LogData     string `ini:"log_data"`
	MCGenData   string `ini:"mcgen_data"`
	GeantData   string `ini:"geant_data"`
	A2GeantPath string `ini:"a2_geant_path"`

	Generator     string `ini:"generator"`
	GeneratorPath string `ini:"generator_path"`
	// GeneratorKind overrides the kind derived from the generator name:
	// reaction, spectrum or gun.
	GeneratorKind   string  `ini:"generator_kind"`
	Emin            float64 `ini:"emin"`
	Emax            float64 `ini:"emax"`
	CocktailSetup   string  `ini:"cocktail_setup"`
	CocktailBinning int     `ini:"cocktail_binning"`
	AddFlags        string  `ini:"add_flags"`

	QsubBin    string `ini:"qsub_bin"`
	QsubMail   string `ini:"qsub_mail"`
	MailUser   string `ini:"mail_user"`
	MailDomain string `ini:"mail_domain"`
	Queue      string `ini:"queue"`
	Priority   int    `ini:"priority"`
	Walltime   string `ini:"walltime"`
	JobTag     string `ini:"job_tag"`

	DecayLevel int     `ini:"decay_level"`
	LogFile    string  `ini:"log_file"`
	MinFreeGB  float64 `ini:"min_free_gb"` // warn below this much free space in a data directory, 0 = off
}

const (
	settingsSection = "settings"
	channelsSection = "channels"

	maxPriority = 63
)

var walltimePattern = regexp.MustCompile(`^\d+:[0-5]\d:[0-5]\d$`)

// NewSettings returns the default settings.
func NewSettings() *Settings {
	return &Settings{
		OutputPath:  "~/simulation",
		LogData:     "log",
		MCGenData:   "mcgen",
		GeantData:   "g4sim",
		A2GeantPath: "~/a2geant",
		Generator:   "Ant-pluto",
		Emin:        1420,
		Emax:        1580,
		QsubBin:     "qsub",
		QsubMail:    "n",
		MailUser:    os.Getenv("USER"),
		MailDomain:  "kph.uni-mainz.de",
		Queue:       "dflt",
		Priority:    0,
		Walltime:    "12:00:00",
		JobTag:      "Sim",
		DecayLevel:  1,
		MinFreeGB:   10,
	}
}

// Load reads settings and channel requests from the INI file at path.
// Keys missing from the file keep their default values.
func Load(path string) (*Settings, []models.ChannelRequest, error) {
	cfg := NewSettings()

	iniFile, err := ini.LoadSources(ini.LoadOptions{
		UnparseableSections: []string{channelsSection},
		Insensitive:         true,
	}, path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load settings file %s: %w", path, err)
	}

	if err := iniFile.Section(settingsSection).MapTo(cfg); err != nil {
		return nil, nil, sim.NewConfigurationError(settingsSection, "%v", err)
	}

	var channels []models.ChannelRequest
	if iniFile.HasSection(channelsSection) {
		channels, err = ParseChannels(iniFile.Section(channelsSection).Body())
		if err != nil {
			return nil, nil, err
		}
	}
	return cfg, channels, nil
}

// Save writes cfg and an optional channel section body to path through a
// temporary file and an atomic rename.
func Save(cfg *Settings, channels string, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create settings directory: %w", err)
		}
	}

	iniFile := ini.Empty()
	section, err := iniFile.NewSection(settingsSection)
	if err != nil {
		return fmt.Errorf("failed to create settings section: %w", err)
	}
	if err := section.ReflectFrom(cfg); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if channels != "" {
		if _, err := iniFile.NewRawSection(channelsSection, channels); err != nil {
			return fmt.Errorf("failed to create channels section: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

const exampleChannels = `# "<reaction>" <files> <events per file>
"p pi0 [g g]" 10 100000
"p omega [pi0 [g g] g]" 5 100000
# cocktail 20 50000
# "gun: pi0" 5 10000
`

// ExportExample writes the default settings with example channels to path.
// An existing file is only replaced when force is set.
func ExportExample(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("file %s already exists, use --force to overwrite it", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to check %s: %w", path, err)
	}
	return Save(NewSettings(), exampleChannels, path)
}

// ParseChannels parses the body of the [channels] section. Each line holds a
// channel, optionally double quoted, followed by the number of files and the
// number of events per file. Empty lines and lines starting with # or ; are
// skipped.
func ParseChannels(body string) ([]models.ChannelRequest, error) {
	var channels []models.ChannelRequest
	for i, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		req, err := parseChannelLine(line)
		if err != nil {
			return nil, sim.NewConfigurationError(channelsSection, "line %d: %v", i+1, err)
		}
		channels = append(channels, req)
	}
	return channels, nil
}

func parseChannelLine(line string) (models.ChannelRequest, error) {
	var raw, rest string
	if strings.HasPrefix(line, `"`) {
		end := strings.Index(line[1:], `"`)
		if end < 0 {
			return models.ChannelRequest{}, fmt.Errorf("unterminated quote in %q", line)
		}
		raw = line[1 : end+1]
		rest = line[end+2:]
	} else {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return models.ChannelRequest{}, fmt.Errorf("expected channel, files and events in %q", line)
		}
		raw = strings.Join(fields[:len(fields)-2], " ")
		rest = strings.Join(fields[len(fields)-2:], " ")
	}

	numbers := strings.Fields(rest)
	if len(numbers) != 2 {
		return models.ChannelRequest{}, fmt.Errorf("expected files and events after %q", raw)
	}
	files, err := strconv.Atoi(numbers[0])
	if err != nil {
		return models.ChannelRequest{}, fmt.Errorf("invalid number of files %q", numbers[0])
	}
	events, err := strconv.Atoi(numbers[1])
	if err != nil {
		return models.ChannelRequest{}, fmt.Errorf("invalid number of events %q", numbers[1])
	}
	return models.ChannelRequest{Raw: raw, Files: files, Events: events}, nil
}

// Kind returns the generator backend kind of the run.
func (cfg *Settings) Kind() (models.ChannelKind, error) {
	if cfg.GeneratorKind != "" {
		return pipeline.ParseKind(cfg.GeneratorKind)
	}
	return pipeline.KindFromGenerator(cfg.Generator)
}

// BackendOptions returns the generator options for generator, the resolved
// generator binary.
func (cfg *Settings) BackendOptions(generator string) pipeline.Options {
	return pipeline.Options{
		Generator: generator,
		Emin:      cfg.Emin,
		Emax:      cfg.Emax,
		Setup:     cfg.CocktailSetup,
		Binning:   cfg.CocktailBinning,
		AddFlags:  cfg.AddFlags,
	}
}

// QueueOptions returns the qsub parameters.
func (cfg *Settings) QueueOptions() queue.Options {
	return queue.Options{
		Binary:   cfg.QsubBin,
		Mail:     cfg.QsubMail,
		User:     cfg.MailUser,
		Domain:   cfg.MailDomain,
		Queue:    cfg.Queue,
		Priority: cfg.Priority,
		Walltime: cfg.Walltime,
	}
}

// SetWalltimeHours sets the wall time to a whole number of hours.
func (cfg *Settings) SetWalltimeHours(hours int) {
	cfg.Walltime = fmt.Sprintf("%02d:00:00", hours)
}

// Validate checks the settings that can be verified without touching the
// filesystem. Every failure is a *sim.ConfigurationError.
func (cfg *Settings) Validate() error {
	if cfg.Priority < 0 || cfg.Priority > maxPriority {
		return sim.NewConfigurationError("priority", "must be between 0 and %d, got %d", maxPriority, cfg.Priority)
	}
	if !walltimePattern.MatchString(cfg.Walltime) {
		return sim.NewConfigurationError("walltime", "expected HH:MM:SS, got %q", cfg.Walltime)
	}
	if cfg.Emin <= 0 || cfg.Emax <= cfg.Emin {
		return sim.NewConfigurationError("emin", "invalid energy range %g to %g MeV", cfg.Emin, cfg.Emax)
	}
	if strings.TrimSpace(cfg.Queue) == "" {
		return sim.NewConfigurationError("queue", "no queue given")
	}
	if strings.TrimSpace(cfg.JobTag) == "" {
		return sim.NewConfigurationError("job_tag", "no job tag given")
	}
	if cfg.MailUser == "" {
		return sim.NewConfigurationError("mail_user", "no mail user given and $USER is not set")
	}
	if cfg.DecayLevel < 0 {
		return sim.NewConfigurationError("decay_level", "must not be negative")
	}
	if cfg.MinFreeGB < 0 {
		return sim.NewConfigurationError("min_free_gb", "must not be negative")
	}

	kind, err := cfg.Kind()
	if err != nil {
		return err
	}
	if kind == models.KindSpectrum {
		if _, _, err := pipeline.NewBackend(kind, cfg.BackendOptions(cfg.Generator)); err != nil {
			return err
		}
	}
	return nil
}

// ResolvePaths expands ~ in every path and makes the data directories
// absolute, relative directories being taken relative to the output path.
func (cfg *Settings) ResolvePaths() error {
	output, err := absPath(cfg.OutputPath)
	if err != nil {
		return err
	}
	cfg.OutputPath = output

	for _, p := range []*string{&cfg.LogData, &cfg.MCGenData, &cfg.GeantData} {
		expanded, err := expandHome(*p)
		if err != nil {
			return err
		}
		if !filepath.IsAbs(expanded) {
			expanded = filepath.Join(output, expanded)
		}
		*p = filepath.Clean(expanded)
	}

	for _, p := range []*string{&cfg.A2GeantPath, &cfg.GeneratorPath, &cfg.LogFile} {
		if *p == "" {
			continue
		}
		if *p, err = absPath(*p); err != nil {
			return err
		}
	}
	return nil
}

func absPath(path string) (string, error) {
	expanded, err := expandHome(path)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path %s: %w", path, err)
	}
	return abs, nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
