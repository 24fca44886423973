package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/a2mainz/simblaster/internal/config"
	"github.com/a2mainz/simblaster/internal/models"
	"github.com/a2mainz/simblaster/internal/sim"
	"github.com/a2mainz/simblaster/internal/sim/filescan"
)

// testEnv is a fake cluster installation: generator, tag tool, qsub and an
// A2 Geant directory, all recording nothing but their invocations.
type testEnv struct {
	dir      string
	output   string
	geant    string
	qsubLog  string
	settings string
}

func writeScript(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		dir:      dir,
		output:   filepath.Join(dir, "out"),
		geant:    filepath.Join(dir, "a2geant"),
		qsubLog:  filepath.Join(dir, "qsub.calls"),
		settings: filepath.Join(dir, "sim_settings"),
	}

	bin := filepath.Join(dir, "bin")
	require.NoError(t, os.MkdirAll(bin, 0755))
	writeScript(t, filepath.Join(bin, "Ant-pluto"), "exit 0")
	writeScript(t, filepath.Join(bin, TagTool), "exit 0")
	writeScript(t, filepath.Join(bin, "qsub"),
		`echo "$@" >> "`+env.qsubLog+`"
cat > /dev/null
echo "42.cluster"`)

	require.NoError(t, os.MkdirAll(filepath.Join(env.geant, "macros"), 0755))
	writeScript(t, filepath.Join(env.geant, "A2"), "exit 0")
	writeScript(t, filepath.Join(env.geant, "runGeant.sh"), "exit 0")
	require.NoError(t, os.WriteFile(filepath.Join(env.geant, "macros", "DetectorSetup.mac"),
		[]byte("/A2/det/setTargetLength 10 cm\n"), 0644))

	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
	t.Setenv("HOME", dir)
	return env
}

func (e *testEnv) writeSettings(t *testing.T, channels string) {
	t.Helper()
	content := "[settings]\n" +
		"output_path = " + e.output + "\n" +
		"a2_geant_path = " + e.geant + "\n" +
		"generator = Ant-pluto\n" +
		"mail_user = tester\n"
	if channels != "" {
		content += "\n[channels]\n" + channels
	}
	require.NoError(t, os.WriteFile(e.settings, []byte(content), 0644))
}

func (e *testEnv) qsubCalls(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(e.qsubLog)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	root := NewRootCmd()
	AddCommands(root)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSubmitEndToEnd(t *testing.T) {
	chk := require.New(t)
	env := newTestEnv(t)
	env.writeSettings(t, `"p pi0 [g g]" 3 1000`+"\n")

	out, err := execute("submit", "-c", env.settings, "--force", "--no-prompt")
	chk.NoError(err)
	chk.Contains(out, " Total 3.0k events in 3 files")

	calls := env.qsubCalls(t)
	chk.Len(calls, 3)
	for i, call := range calls {
		chk.Contains(call, "-N Sim/"+strconv.Itoa(i+1)+" ")
		chk.Contains(call, "-M tester@kph.uni-mainz.de")
	}

	manifests, err := filepath.Glob(filepath.Join(env.output, "submit_*.log"))
	chk.NoError(err)
	chk.Len(manifests, 1)
	data, err := os.ReadFile(manifests[0])
	chk.NoError(err)
	chk.Contains(string(data), "Submitting 3 jobs on ")
	chk.Contains(string(data), " Total 3.0k events in 3 files")
	chk.Contains(string(data), "mcgen_pi0_2g_0003.root")

	for _, dir := range []string{"log", "mcgen", "g4sim"} {
		chk.DirExists(filepath.Join(env.output, dir))
	}
}

func TestSubmitWithoutChannels(t *testing.T) {
	chk := require.New(t)
	env := newTestEnv(t)
	env.writeSettings(t, "")

	_, err := execute("-c", env.settings, "--force", "--no-prompt")
	chk.Error(err)
	chk.True(errors.Is(err, sim.ErrEmptyBatch))
	chk.Equal(sim.ExitEmptyBatch, sim.ExitCode(err))
	chk.Empty(env.qsubCalls(t))
}

func TestSubmitMissingOutputWithoutForce(t *testing.T) {
	chk := require.New(t)
	env := newTestEnv(t)
	env.writeSettings(t, `"p pi0 [g g]" 1 10`+"\n")

	_, err := execute("-c", env.settings, "--no-prompt")
	chk.Error(err)
	chk.Equal(sim.ExitConfiguration, sim.ExitCode(err))
	chk.Empty(env.qsubCalls(t))
}

func TestSubmitFailingTestJob(t *testing.T) {
	chk := require.New(t)
	env := newTestEnv(t)
	env.writeSettings(t, `"p pi0 [g g]" 2 10`+"\n")
	writeScript(t, filepath.Join(env.geant, "runGeant.sh"), "echo broken >&2\nexit 2")

	_, err := execute("-c", env.settings, "--force", "--no-prompt")
	var valErr *sim.ValidationError
	chk.ErrorAs(err, &valErr)
	chk.Equal("simulate", valErr.Stage)
	chk.Equal(2, valErr.ExitCode)
	chk.Contains(valErr.Stderr, "broken")
	chk.Empty(env.qsubCalls(t))
}

func TestPlanContinuesNumbering(t *testing.T) {
	chk := require.New(t)
	env := newTestEnv(t)
	env.writeSettings(t, `"p pi0 [g g]" 3 1000`+"\n")

	mcgen := filepath.Join(env.output, "mcgen")
	chk.NoError(os.MkdirAll(mcgen, 0755))
	name := filescan.FileName(filescan.GeneratedPrefix, "pi0_2g", 4, "root")
	chk.NoError(os.WriteFile(filepath.Join(mcgen, name), nil, 0644))

	out, err := execute("plan", "-c", env.settings, "--force")
	chk.NoError(err)
	chk.Contains(out, "#0005-0007")
	chk.Empty(env.qsubCalls(t))
}

func TestPlanWithChannelFile(t *testing.T) {
	chk := require.New(t)
	env := newTestEnv(t)
	env.writeSettings(t, `"p pi0 [g g]" 3 1000`+"\n")

	channels := filepath.Join(env.dir, "channels.yaml")
	chk.NoError(os.WriteFile(channels, []byte(`channels:
  - channel: "p eta [g g]"
    files: 2
    events: 500
`), 0644))

	out, err := execute("plan", "-c", env.settings, "--force", "--channels", channels)
	chk.NoError(err)
	chk.Contains(out, "1 channel configured")
	chk.Contains(out, " Total 1.0k events in 2 files")
}

func TestList(t *testing.T) {
	chk := require.New(t)
	env := newTestEnv(t)
	env.writeSettings(t, "")

	mcgen := filepath.Join(env.output, "mcgen")
	g4sim := filepath.Join(env.output, "g4sim")
	chk.NoError(os.MkdirAll(mcgen, 0755))
	chk.NoError(os.MkdirAll(g4sim, 0755))
	for _, f := range []string{
		filescan.FileName(filescan.GeneratedPrefix, "pi0_2g", 1, "root"),
		filescan.FileName(filescan.GeneratedPrefix, "pi0_2g", 2, "root"),
		filescan.FileName(filescan.GeneratedPrefix, "cocktail", 1, "root"),
	} {
		chk.NoError(os.WriteFile(filepath.Join(mcgen, f), nil, 0644))
	}
	sim3 := filescan.FileName(filescan.SimulatedPrefix, "pi0_2g", 3, "root")
	chk.NoError(os.WriteFile(filepath.Join(g4sim, sim3), nil, 0644))

	out, err := execute("list", "-c", env.settings)
	chk.NoError(err)
	chk.Contains(out, "Cocktail: 1 files")
	chk.Contains(out, "   3 files")
}

func TestExampleConfig(t *testing.T) {
	chk := require.New(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "example_settings")

	_, err := execute("example-config", path)
	chk.NoError(err)

	cfg, channels, err := config.Load(path)
	chk.NoError(err)
	chk.Equal("Ant-pluto", cfg.Generator)
	chk.Len(channels, 2)

	_, err = execute("example-config", path)
	chk.Error(err)

	_, err = execute("example-config", "--force", path)
	chk.NoError(err)
}

func TestPrintFileCounts(t *testing.T) {
	var out bytes.Buffer
	generated := filescan.ScanResult{
		Channels:      []filescan.ChannelCount{{Channel: "pi0_2g", Files: 3, MaxSequence: 3}},
		CocktailFiles: 2,
	}
	simulated := filescan.ScanResult{
		Channels: []filescan.ChannelCount{{Channel: "pi0_2g", Files: 4, MaxSequence: 5}},
	}

	printFileCounts(&out, generated, simulated)

	got := out.String()
	require.Contains(t, got, "Cocktail: 2 files")
	require.NotContains(t, got, "Particle gun")
	require.Contains(t, got, "   5 files")
}

func TestPrintPlan(t *testing.T) {
	var out bytes.Buffer
	cfg := config.NewSettings()
	cfg.OutputPath = "/data/sim"
	plans := []models.SimulationPlan{
		{Channel: models.ResolvedChannel{ID: "cocktail", Kind: models.KindSpectrum}, Files: 2, Events: 50000, Offset: 7},
		{Channel: models.ResolvedChannel{ID: "pi0-gun", Kind: models.KindGun}, Files: 1, Events: 1000},
	}

	printPlan(&out, cfg, plans)

	got := out.String()
	require.Contains(t, got, "2 channels configured")
	require.Contains(t, got, "#0008-0009")
	require.Contains(t, got, "#0001-0001")
	require.Contains(t, got, " Total 101.0k events in 3 files")
	require.Contains(t, got, "Files will be stored in /data/sim")
}
