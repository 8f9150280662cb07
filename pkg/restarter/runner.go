package restarter

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/core-tools/hsu-restarter-go/pkg/errors"
	"github.com/core-tools/hsu-restarter-go/pkg/logcollection"
	"github.com/core-tools/hsu-restarter-go/pkg/logging"
	"github.com/core-tools/hsu-restarter-go/pkg/metrics"
	"github.com/core-tools/hsu-restarter-go/pkg/supervision"
)

// Options are the resolved run parameters: CLI flags, optionally merged
// with a configuration file when ConfigFile is set.
type Options struct {
	Command     string
	Instances   int
	Pattern     string
	IdleTimeout time.Duration
	Silent      bool
	LogDir      string
	MetricsAddr string
	ConfigFile  string
	RunDuration int
}

// Run starts the worker pool and blocks until an interrupt drains it (or
// RunDuration elapses). Returns only setup errors; worker failures are
// handled by the supervision loop itself.
func Run(options Options, logger logging.Logger) error {
	logger.Infof("Restarter starting...")

	// Log platform information
	logger.Infof("Platform: OS=%s, Arch=%s, CPUs=%d, Go=%s",
		runtime.GOOS, runtime.GOARCH, runtime.NumCPU(), runtime.Version())

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if options.RunDuration > 0 {
		logger.Infof("Using RUN DURATION of %d seconds", options.RunDuration)
		var timeoutCancel context.CancelFunc
		runCtx, timeoutCancel = context.WithTimeout(runCtx, time.Duration(options.RunDuration)*time.Second)
		defer timeoutCancel()
	}

	slots, err := resolveSlots(&options, logger)
	if err != nil {
		return err
	}

	logger.Infof("Supervising %d worker slots", len(slots))

	sink, err := logcollection.NewService(logcollection.Options{
		Silent:    options.Silent,
		Directory: options.LogDir,
	}, logger)
	if err != nil {
		return errors.NewInternalError("failed to create log collection service", err)
	}
	defer sink.Close()

	var metricsServer *http.Server
	if options.MetricsAddr != "" {
		metricsServer = metrics.Serve(options.MetricsAddr, logger)
	}

	logger.Infof("Enabling signal handling...")

	sig := make(chan os.Signal, 1)
	if runtime.GOOS == "windows" {
		signal.Notify(sig) // Unix signals not implemented on Windows
	} else {
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	}
	defer signal.Stop(sig)

	// The shutdown signal is set exactly once; repeated signals are no-ops
	// while the pool drains.
	var stopOnce sync.Once
	go func() {
		for received := range sig {
			logger.Infof("Received signal: %v, stopping all workers...", received)
			stopOnce.Do(cancel)
		}
	}()

	supervisor := supervision.NewSupervisor(slots, sink, logger)
	supervisor.Run(runCtx)

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 3*time.Second)
		metricsServer.Shutdown(shutdownCtx)
		shutdownCancel()
	}

	logger.Infof("Restarter stopped")

	return nil
}

// resolveSlots builds the slot list either from the configuration file or
// from the homogeneous CLI form. File values fill in options the CLI left
// unset so logging and metrics flags keep working in config mode.
func resolveSlots(options *Options, logger logging.Logger) ([]supervision.Slot, error) {
	if options.ConfigFile != "" {
		logger.Infof("Using CONFIGURATION FILE: %s", options.ConfigFile)

		config, err := LoadConfigFromFile(options.ConfigFile)
		if err != nil {
			return nil, err
		}
		if err := ValidateConfig(config); err != nil {
			return nil, errors.NewValidationError("configuration validation failed", err).WithContext("config_file", options.ConfigFile)
		}

		if !options.Silent {
			options.Silent = config.Restarter.Silent
		}
		if options.LogDir == "" {
			options.LogDir = config.Restarter.LogDir
		}
		if options.MetricsAddr == "" {
			options.MetricsAddr = config.Restarter.MetricsAddr
		}

		return BuildSlots(config)
	}

	if options.Command == "" {
		return nil, errors.NewValidationError("command is required", nil)
	}
	if options.Instances < 1 {
		return nil, errors.NewValidationError("instance count must be at least 1", nil).WithContext("instances", options.Instances)
	}
	if options.IdleTimeout <= 0 {
		return nil, errors.NewValidationError("idle timeout must be positive", nil).WithContext("idle_timeout", options.IdleTimeout)
	}

	var pattern *regexp.Regexp
	if options.Pattern != "" {
		compiled, err := regexp.Compile(options.Pattern)
		if err != nil {
			return nil, errors.NewValidationError("invalid heartbeat pattern", err).WithContext("pattern", options.Pattern)
		}
		pattern = compiled
	}

	slots := make([]supervision.Slot, 0, options.Instances)
	for i := 0; i < options.Instances; i++ {
		slots = append(slots, supervision.Slot{
			ID:          i,
			Command:     options.Command,
			IdleTimeout: options.IdleTimeout,
			Pattern:     pattern,
		})
	}

	return slots, nil
}
