// simblaster - plans A2 simulation campaigns and submits them to the cluster queue
package main

import (
	"os"

	"github.com/a2mainz/simblaster/internal/cli"
	"github.com/a2mainz/simblaster/internal/sim"
	"github.com/a2mainz/simblaster/internal/version"
)

// Version information, set by ldflags during build
var (
	Version   = version.Version
	BuildTime = version.BuildTime
)

func main() {
	// Set version in version package (canonical source for all packages)
	// and CLI package
	version.Version = Version
	version.BuildTime = BuildTime
	cli.Version = Version
	cli.BuildTime = BuildTime

	os.Exit(sim.ExitCode(cli.Execute()))
}
