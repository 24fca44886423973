package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/a2mainz/simblaster/internal/config"
	"github.com/a2mainz/simblaster/internal/diskspace"
	"github.com/a2mainz/simblaster/internal/logging"
	"github.com/a2mainz/simblaster/internal/models"
	"github.com/a2mainz/simblaster/internal/progress"
	"github.com/a2mainz/simblaster/internal/sim"
	"github.com/a2mainz/simblaster/internal/sim/channel"
	"github.com/a2mainz/simblaster/internal/sim/decay"
	"github.com/a2mainz/simblaster/internal/sim/pipeline"
	"github.com/a2mainz/simblaster/internal/sim/plan"
	"github.com/a2mainz/simblaster/internal/sim/queue"
	"github.com/a2mainz/simblaster/internal/sim/submit"
	"github.com/a2mainz/simblaster/internal/sim/validate"
	"github.com/a2mainz/simblaster/internal/util/sanitize"
	"github.com/a2mainz/simblaster/internal/validation"
	ustrings "github.com/a2mainz/simblaster/internal/util/strings"
)

// TagTool adds the bookkeeping tree required by A2 Geant4 to generated files.
const TagTool = "Ant-addTID"

// runOptions are the command line overrides shared by submit and plan.
type runOptions struct {
	output        string
	generator     string
	pathGenerator string
	addFlags      string
	walltime      int
	queue         string
	channelsFile  string
	force         bool
	noPrompt      bool
}

var runOpts runOptions

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&runOpts.output, "output", "o", "", "Output directory (overrides output_path)")
	f.StringVarP(&runOpts.generator, "generator", "g", "", "MC generator binary, e.g. Ant-pluto")
	f.StringVarP(&runOpts.pathGenerator, "path-generator", "p", "", "Directory of the MC generator binary if it is not in $PATH")
	f.StringVarP(&runOpts.addFlags, "add-flags", "a", "", "Additional flags for the MC generator, given as one quoted string")
	f.IntVarP(&runOpts.walltime, "walltime", "w", 0, "Wall time of the jobs in hours")
	f.StringVarP(&runOpts.queue, "queue", "q", "", "Queue the jobs are submitted to")
	f.StringVar(&runOpts.channelsFile, "channels", "", "YAML file with the channels to simulate (replaces [channels])")
	f.BoolVarP(&runOpts.force, "force", "f", false, "Create missing directories")
	f.BoolVar(&runOpts.noPrompt, "no-prompt", false, "Never ask for channels interactively")
}

func newSubmitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Run a local test job and submit the simulation jobs (default)",
		Long: `Resolve the requested channels, continue the file numbering found in the
output directories, run the first job locally with a single event and
submit one queue job per requested file.

A submission log "submit_<date>_<time>.log" listing every submitted
command is written to the output directory.`,
		RunE: runSubmit,
	}
	addRunFlags(cmd)
	return cmd
}

// session is a loaded and checked configuration.
type session struct {
	cfg      *config.Settings
	channels []models.ChannelRequest
	kind     models.ChannelKind
}

func loadSettings(log *logging.Logger) (*config.Settings, []models.ChannelRequest, error) {
	path, err := config.FindConfig(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	if path == "" {
		log.Warn().Msg("No settings file found, using default values")
		return config.NewSettings(), nil, nil
	}
	log.Info().Str("file", path).Msg("Using settings file")
	return config.Load(path)
}

func applyOverrides(cfg *config.Settings, log *logging.Logger) error {
	if runOpts.output != "" {
		log.Info().Str("output", runOpts.output).Msg("Setting custom output directory")
		cfg.OutputPath = runOpts.output
	}
	if runOpts.pathGenerator != "" {
		log.Info().Str("path", runOpts.pathGenerator).Msg("Setting custom path for the MC generator")
		cfg.GeneratorPath = runOpts.pathGenerator
	}
	if runOpts.generator != "" {
		log.Info().Str("generator", runOpts.generator).Msg("Using custom MC generator")
		cfg.Generator = runOpts.generator
	}
	if runOpts.addFlags != "" {
		log.Info().Str("flags", runOpts.addFlags).Msg("Setting custom flags for the MC generator")
		cfg.AddFlags = runOpts.addFlags
	}
	if runOpts.walltime < 0 {
		return sim.NewConfigurationError("walltime", "must be a positive number of hours, got %d", runOpts.walltime)
	}
	if runOpts.walltime > 0 {
		log.Info().Int("hours", runOpts.walltime).Msg("Setting custom walltime")
		cfg.SetWalltimeHours(runOpts.walltime)
	}
	if runOpts.queue != "" {
		log.Info().Str("queue", runOpts.queue).Msg("Setting custom queue")
		cfg.Queue = runOpts.queue
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}
	cfg.AddFlags = sanitize.SanitizeCommand(cfg.AddFlags)
	return nil
}

// prepare loads the settings, applies the command line overrides and checks
// the output directories.
func prepare(log *logging.Logger) (*session, error) {
	cfg, channels, err := loadSettings(log)
	if err != nil {
		return nil, err
	}
	if runOpts.channelsFile != "" {
		if channels, err = config.LoadChannelsYAML(runOpts.channelsFile); err != nil {
			return nil, err
		}
		log.Info().Str("file", runOpts.channelsFile).Int("channels", len(channels)).Msg("Using channel file")
	}

	if err := applyOverrides(cfg, log); err != nil {
		return nil, err
	}
	if err := cfg.ResolvePaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.LogFile != "" && logFile == "" {
		log.EnableFile(logging.FileConfig{Path: cfg.LogFile})
	}

	if err := checkDirectories(cfg, runOpts.force, log); err != nil {
		return nil, err
	}

	kind, err := cfg.Kind()
	if err != nil {
		return nil, err
	}
	log.Debug().Interface("settings", cfg).Msg("Effective settings")

	return &session{cfg: cfg, channels: channels, kind: kind}, nil
}

func checkDirectories(cfg *config.Settings, force bool, log *logging.Logger) error {
	for _, dir := range []string{cfg.OutputPath, cfg.LogData, cfg.MCGenData, cfg.GeantData} {
		created, err := validation.CheckDirectory(dir, force, true)
		if err != nil {
			return err
		}
		if created {
			log.Info().Str("path", dir).Msg("Created directory")
		}
	}
	if cfg.GeneratorPath != "" {
		if _, err := validation.CheckDirectory(cfg.GeneratorPath, false, false); err != nil {
			return err
		}
	}

	if cfg.MinFreeGB > 0 {
		required := uint64(cfg.MinFreeGB * 1e9)
		for _, dir := range []string{cfg.MCGenData, cfg.GeantData} {
			if err := diskspace.Check(dir, required); err != nil {
				log.Warn().Str("path", dir).Msg(err.Error())
			}
		}
	}
	return nil
}

// binaries are the absolute paths of the external programs of a run.
type binaries struct {
	generator string
	tag       string
	simulate  string
	qsub      string
}

func findBinaries(cfg *config.Settings, log *logging.Logger) (*binaries, error) {
	var bins binaries
	var err error

	if bins.qsub, err = validation.FindExecutable(cfg.QsubBin); err != nil {
		return nil, err
	}
	if bins.tag, err = validation.FindExecutable(TagTool); err != nil {
		return nil, err
	}
	log.Debug().Str("path", bins.tag).Msg("Found " + TagTool)

	if cfg.GeneratorPath != "" {
		bins.generator, err = validation.CheckBinary(cfg.GeneratorPath, cfg.Generator)
	} else {
		bins.generator, err = validation.FindExecutable(cfg.Generator)
	}
	if err != nil {
		return nil, err
	}
	log.Debug().Str("path", bins.generator).Msg("Found MC generator")

	geant, err := validation.CheckGeant(cfg.A2GeantPath)
	if err != nil {
		return nil, err
	}
	for _, w := range geant.Warnings {
		log.Warn().Str("a2_geant_path", cfg.A2GeantPath).Msg(w)
	}
	bins.simulate = geant.RunScript
	return &bins, nil
}

func warnAdvisories(log *logging.Logger, advisories []sim.Advisory) {
	for _, a := range advisories {
		log.Warn().Str("channel", a.Channel).Msg(a.Message)
	}
}

func (s *session) planner(log *logging.Logger) *plan.Planner {
	return &plan.Planner{
		GeneratedDir: s.cfg.MCGenData,
		SimulatedDir: s.cfg.GeantData,
		Level:        s.cfg.DecayLevel,
		Resolve:      channel.Resolve,
		Logger:       log,
	}
}

func runSubmit(cmd *cobra.Command, args []string) error {
	log := GetLogger()
	ctx := GetContext()

	s, err := prepare(log)
	if err != nil {
		return err
	}
	bins, err := findBinaries(s.cfg, log)
	if err != nil {
		return err
	}

	channels := s.channels
	if len(channels) == 0 {
		log.Warn().Msg("No channels specified, use example-config to export example settings")
		if !runOpts.noPrompt && isInteractive(os.Stdin) {
			channels, err = promptChannels(os.Stdin, cmd.OutOrStdout())
			if err != nil {
				return err
			}
		}
		if len(channels) == 0 {
			return fmt.Errorf("%w: no channels entered for simulation", sim.ErrEmptyBatch)
		}
	}

	backend, advisories, err := pipeline.NewBackend(s.kind, s.cfg.BackendOptions(bins.generator))
	if err != nil {
		return err
	}
	warnAdvisories(log, advisories)

	result, err := s.planner(log).Build(channels)
	if err != nil {
		return err
	}
	warnAdvisories(log, plan.KindAdvisories(result.Plans, s.kind))
	printPlan(cmd.OutOrStdout(), s.cfg, result.Plans)

	builder := pipeline.Builder{
		Backend:   backend,
		TagTool:   bins.tag,
		SimBinary: bins.simulate,
		Paths: pipeline.Paths{
			Generated: s.cfg.MCGenData,
			Simulated: s.cfg.GeantData,
			Logs:      s.cfg.LogData,
		},
	}

	log.Info().Msg("Running first test job locally")
	validator := &validate.Validator{
		Builder:  builder,
		Runner:   validate.ShellRunner{},
		Progress: progress.NewReporter(os.Stderr),
		Logger:   log,
	}
	if err := validator.Validate(ctx, result.Plans); err != nil {
		return err
	}

	qopts := s.cfg.QueueOptions()
	qopts.Binary = bins.qsub
	client := queue.NewQsubClient(qopts)

	submitter := &submit.Submitter{
		Builder:      builder,
		Client:       client,
		QueueCommand: client.Template(),
		Tag:          s.cfg.JobTag,
		OutputDir:    s.cfg.OutputPath,
		Progress:     os.Stderr,
		Interactive:  progress.IsTerminal(os.Stderr),
		Logger:       log,
	}
	res, err := submitter.SubmitAll(ctx, result.Plans)
	if err != nil {
		return err
	}

	log.Info().Int("jobs", res.Submitted).Str("manifest", res.ManifestPath).Msg("Done!")
	return nil
}

// printPlan writes the plan table shown before the test job.
func printPlan(w io.Writer, cfg *config.Settings, plans []models.SimulationPlan) {
	fmt.Fprintf(w, "%d %s configured. The following simulation will take place:\n",
		len(plans), ustrings.Pluralize("channel", int64(len(plans))))

	for _, p := range plans {
		name := p.Channel.ID
		if p.Channel.Kind == models.KindReaction {
			name = decay.Pretty(name, true)
		}
		seqs := p.Sequences()
		fmt.Fprintf(w, "%-20s %4d files per %4s events (total %4s events)  #%04d-%04d\n",
			name, p.Files,
			ustrings.FormatCount(int64(p.Events)),
			ustrings.FormatCount(int64(p.TotalEvents())),
			seqs[0], seqs[len(seqs)-1])
	}

	files, events := plan.Totals(plans)
	fmt.Fprintf(w, " Total %s events in %d files\n", ustrings.FormatCount(events), files)
	fmt.Fprintf(w, " Files will be stored in %s\n", cfg.OutputPath)
	GetLogger().Debug().Str("events", humanize.Comma(events)).Int64("files", files).Msg("Plan totals")
}
