package main

import (
	"fmt"
	"os"
	"time"

	sprintflogging "github.com/core-tools/hsu-restarter-go/pkg/logging/sprintf"

	"github.com/core-tools/hsu-restarter-go/pkg/logging"
	"github.com/core-tools/hsu-restarter-go/pkg/restarter"

	flags "github.com/jessevdk/go-flags"
)

type flagOptions struct {
	Silent          bool   `long:"silent" description:"Silent mode: suppress worker output, keep lifecycle logs"`
	NoOutputTimeout int    `long:"no-output-timeout" description:"Timeout in minutes for no output before restarting" default:"5"`
	Config          string `long:"config" short:"c" description:"Configuration file path (YAML); replaces positional arguments"`
	LogDir          string `long:"log-dir" description:"Directory for per-worker log files"`
	MetricsAddr     string `long:"metrics-addr" description:"Listen address for the Prometheus metrics endpoint"`
	RunDuration     int    `long:"run-duration" description:"Duration in seconds to run (debug feature)"`

	Args struct {
		Command   string `positional-arg-name:"command" description:"Command to run in each worker instance"`
		Instances int    `positional-arg-name:"instances" description:"Number of instances to run in parallel"`
		Pattern   string `positional-arg-name:"pattern" description:"Heartbeat regular expression tested against worker output"`
	} `positional-args:"yes"`
}

func logPrefix(module string) string {
	return fmt.Sprintf("module: %s , ", module)
}

func main() {
	var opts flagOptions
	var argv []string = os.Args[1:]
	var parser = flags.NewParser(&opts, flags.HelpFlag)
	var err error
	_, err = parser.ParseArgs(argv)
	if err != nil {
		fmt.Printf("Command line flags parsing failed: %v", err)
		os.Exit(1)
	}

	sprintfLogger := sprintflogging.NewStdSprintfLogger()

	// Create loggers
	logger := logging.NewLogger(
		logPrefix("hsu-restarter"), logging.LogFuncs{
			Debugf: sprintfLogger.Debugf,
			Infof:  sprintfLogger.Infof,
			Warnf:  sprintfLogger.Warnf,
			Errorf: sprintfLogger.Errorf,
		})

	options := restarter.Options{
		Command:     opts.Args.Command,
		Instances:   opts.Args.Instances,
		Pattern:     opts.Args.Pattern,
		IdleTimeout: time.Duration(opts.NoOutputTimeout) * time.Minute,
		Silent:      opts.Silent,
		LogDir:      opts.LogDir,
		MetricsAddr: opts.MetricsAddr,
		ConfigFile:  opts.Config,
		RunDuration: opts.RunDuration,
	}

	err = restarter.Run(options, logger)
	if err != nil {
		logger.Errorf("Failed to run: %v", err)
		os.Exit(1)
	}
}
