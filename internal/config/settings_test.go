package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/a2mainz/simblaster/internal/models"
	"github.com/a2mainz/simblaster/internal/sim"
)

func TestNewSettings(t *testing.T) {
	cfg := NewSettings()

	if cfg.QsubBin != "qsub" {
		t.Errorf("Expected QsubBin=qsub, got %s", cfg.QsubBin)
	}
	if cfg.JobTag != "Sim" {
		t.Errorf("Expected JobTag=Sim, got %s", cfg.JobTag)
	}
	if cfg.MailDomain != "kph.uni-mainz.de" {
		t.Errorf("Expected MailDomain=kph.uni-mainz.de, got %s", cfg.MailDomain)
	}
	if cfg.DecayLevel != 1 {
		t.Errorf("Expected DecayLevel=1, got %d", cfg.DecayLevel)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim_settings")
	content := `[settings]
output_path = /data/sim
generator = Ant-cocktail
cocktail_binning = 10
emin = 100
emax = 1400
queue = long
priority = 12
mail_user = jdoe

[channels]
# reaction files events
"p pi0 [g g]" 3 1000
cocktail 2 500
"gun: pi0" 1 10
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write settings: %v", err)
	}

	cfg, channels, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.OutputPath != "/data/sim" {
		t.Errorf("Expected OutputPath=/data/sim, got %s", cfg.OutputPath)
	}
	if cfg.CocktailBinning != 10 || cfg.Emin != 100 || cfg.Emax != 1400 {
		t.Errorf("Unexpected cocktail settings: %+v", cfg)
	}
	if cfg.Priority != 12 || cfg.Queue != "long" {
		t.Errorf("Unexpected queue settings: %+v", cfg)
	}
	// untouched keys keep their defaults
	if cfg.Walltime != "12:00:00" || cfg.MCGenData != "mcgen" {
		t.Errorf("Defaults not preserved: %+v", cfg)
	}

	want := []models.ChannelRequest{
		{Raw: "p pi0 [g g]", Files: 3, Events: 1000},
		{Raw: "cocktail", Files: 2, Events: 500},
		{Raw: "gun: pi0", Files: 1, Events: 10},
	}
	if len(channels) != len(want) {
		t.Fatalf("Expected %d channels, got %d: %+v", len(want), len(channels), channels)
	}
	for i := range want {
		if channels[i] != want[i] {
			t.Errorf("channel %d = %+v, want %+v", i, channels[i], want[i])
		}
	}
}

func TestParseChannelsErrors(t *testing.T) {
	tests := []string{
		`"p pi0 [g g] 3 1000`,
		`"p pi0 [g g]" three 1000`,
		`"p pi0 [g g]" 3`,
		`cocktail 3`,
	}
	for _, body := range tests {
		_, err := ParseChannels(body)
		var cfgErr *sim.ConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Errorf("ParseChannels(%q) = %v, want ConfigurationError", body, err)
		}
	}
}

func TestExportExample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "example_settings")

	if err := ExportExample(path, false); err != nil {
		t.Fatalf("ExportExample failed: %v", err)
	}
	if err := ExportExample(path, false); err == nil {
		t.Error("Expected error when overwriting without force")
	}
	if err := ExportExample(path, true); err != nil {
		t.Errorf("ExportExample with force failed: %v", err)
	}

	cfg, channels, err := Load(path)
	if err != nil {
		t.Fatalf("Load of exported example failed: %v", err)
	}
	if cfg.Generator != "Ant-pluto" || cfg.Walltime != "12:00:00" {
		t.Errorf("Unexpected exported settings: %+v", cfg)
	}
	if len(channels) != 2 || channels[0].Raw != "p pi0 [g g]" {
		t.Errorf("Unexpected exported channels: %+v", channels)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("Temporary file left behind")
	}
}

func validSettings() *Settings {
	cfg := NewSettings()
	cfg.MailUser = "jdoe"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Settings)
		field  string
	}{
		{"defaults", func(*Settings) {}, ""},
		{"priority too high", func(c *Settings) { c.Priority = 64 }, "priority"},
		{"negative priority", func(c *Settings) { c.Priority = -1 }, "priority"},
		{"bad walltime", func(c *Settings) { c.Walltime = "12h" }, "walltime"},
		{"inverted energy range", func(c *Settings) { c.Emin, c.Emax = 1500, 1400 }, "emin"},
		{"no mail user", func(c *Settings) { c.MailUser = "" }, "mail_user"},
		{"negative free space", func(c *Settings) { c.MinFreeGB = -1 }, "min_free_gb"},
		{"unknown generator", func(c *Settings) { c.Generator = "madgraph" }, "generator"},
		{"cocktail without setup or binning", func(c *Settings) { c.Generator = "Ant-cocktail" }, "cocktail"},
		{"cocktail with binning", func(c *Settings) { c.Generator = "Ant-cocktail"; c.CocktailBinning = 10 }, ""},
		{"explicit kind", func(c *Settings) { c.Generator = "my-gen"; c.GeneratorKind = "gun" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validSettings()
			tt.modify(cfg)
			err := cfg.Validate()

			if tt.field == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			var cfgErr *sim.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Validate() = %v, want ConfigurationError", err)
			}
			if !strings.HasPrefix(cfgErr.Field, tt.field) {
				t.Errorf("Field = %q, want prefix %q", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestSetWalltimeHours(t *testing.T) {
	cfg := NewSettings()
	cfg.SetWalltimeHours(4)
	if cfg.Walltime != "04:00:00" {
		t.Errorf("Walltime = %s", cfg.Walltime)
	}
	cfg.SetWalltimeHours(120)
	if cfg.Walltime != "120:00:00" {
		t.Errorf("Walltime = %s", cfg.Walltime)
	}
}

func TestResolvePaths(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	cfg := NewSettings()
	cfg.OutputPath = "~/sim"
	cfg.GeantData = "/scratch/g4sim"
	cfg.A2GeantPath = "~/a2geant"

	if err := cfg.ResolvePaths(); err != nil {
		t.Fatalf("ResolvePaths failed: %v", err)
	}
	if cfg.OutputPath != filepath.Join(home, "sim") {
		t.Errorf("OutputPath = %s", cfg.OutputPath)
	}
	if cfg.MCGenData != filepath.Join(home, "sim", "mcgen") {
		t.Errorf("MCGenData = %s", cfg.MCGenData)
	}
	if cfg.GeantData != "/scratch/g4sim" {
		t.Errorf("GeantData = %s", cfg.GeantData)
	}
	if cfg.A2GeantPath != filepath.Join(home, "a2geant") {
		t.Errorf("A2GeantPath = %s", cfg.A2GeantPath)
	}
	if cfg.GeneratorPath != "" {
		t.Errorf("empty GeneratorPath must stay empty, got %s", cfg.GeneratorPath)
	}
}

func TestQueueOptions(t *testing.T) {
	cfg := validSettings()
	cfg.Priority = 7
	opts := cfg.QueueOptions()
	if opts.User != "jdoe" || opts.Priority != 7 || opts.Binary != "qsub" {
		t.Errorf("Unexpected queue options: %+v", opts)
	}
}
