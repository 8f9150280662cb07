package restarter

import (
	"fmt"
	"io/ioutil"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/core-tools/hsu-restarter-go/pkg/errors"
	"github.com/core-tools/hsu-restarter-go/pkg/supervision"
)

// DefaultIdleTimeoutMinutes applies when a worker entry leaves the idle
// timeout unset.
const DefaultIdleTimeoutMinutes = 5

// RestarterConfig represents the top-level configuration file structure
type RestarterConfig struct {
	Restarter RestarterConfigOptions `yaml:"restarter"`
	Workers   []WorkerConfig         `yaml:"workers"`
}

// RestarterConfigOptions represents restarter-level configuration
type RestarterConfigOptions struct {
	Silent      bool   `yaml:"silent,omitempty"`
	LogDir      string `yaml:"log_dir,omitempty"`
	MetricsAddr string `yaml:"metrics_addr,omitempty"`
}

// WorkerConfig represents one supervised command, possibly replicated
type WorkerConfig struct {
	Command            string `yaml:"command"`
	Instances          int    `yaml:"instances,omitempty"`
	Pattern            string `yaml:"pattern,omitempty"`
	IdleTimeoutMinutes int    `yaml:"idle_timeout_minutes,omitempty"`
}

// LoadConfigFromFile loads restarter configuration from a YAML file
func LoadConfigFromFile(filename string) (*RestarterConfig, error) {
	data, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, errors.NewIOError("failed to read configuration file", err).WithContext("filename", filename)
	}

	var config RestarterConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.NewValidationError("failed to parse YAML configuration", err).WithContext("filename", filename)
	}

	return &config, nil
}

// ValidateConfig checks the configuration for structural problems before
// any worker is started.
func ValidateConfig(config *RestarterConfig) error {
	if config == nil {
		return errors.NewValidationError("configuration is nil", nil)
	}

	if len(config.Workers) == 0 {
		return errors.NewValidationError("configuration contains no workers", nil)
	}

	for i, worker := range config.Workers {
		if worker.Command == "" {
			return errors.NewValidationError(
				fmt.Sprintf("worker %d: command is required", i), nil)
		}
		if worker.Instances < 0 {
			return errors.NewValidationError(
				fmt.Sprintf("worker %d: instances must not be negative", i), nil).WithContext("instances", worker.Instances)
		}
		if worker.IdleTimeoutMinutes < 0 {
			return errors.NewValidationError(
				fmt.Sprintf("worker %d: idle_timeout_minutes must not be negative", i), nil).WithContext("idle_timeout_minutes", worker.IdleTimeoutMinutes)
		}
		if worker.Pattern != "" {
			if _, err := regexp.Compile(worker.Pattern); err != nil {
				return errors.NewValidationError(
					fmt.Sprintf("worker %d: invalid heartbeat pattern", i), err).WithContext("pattern", worker.Pattern)
			}
		}
	}

	return nil
}

// BuildSlots expands the validated configuration into per-worker slots with
// sequential ids. A worker entry with instances unset yields one slot.
func BuildSlots(config *RestarterConfig) ([]supervision.Slot, error) {
	var slots []supervision.Slot

	for i, worker := range config.Workers {
		var pattern *regexp.Regexp
		if worker.Pattern != "" {
			compiled, err := regexp.Compile(worker.Pattern)
			if err != nil {
				return nil, errors.NewValidationError(
					fmt.Sprintf("worker %d: invalid heartbeat pattern", i), err).WithContext("pattern", worker.Pattern)
			}
			pattern = compiled
		}

		timeoutMinutes := worker.IdleTimeoutMinutes
		if timeoutMinutes == 0 {
			timeoutMinutes = DefaultIdleTimeoutMinutes
		}

		instances := worker.Instances
		if instances == 0 {
			instances = 1
		}

		for n := 0; n < instances; n++ {
			slots = append(slots, supervision.Slot{
				ID:          len(slots),
				Command:     worker.Command,
				IdleTimeout: time.Duration(timeoutMinutes) * time.Minute,
				Pattern:     pattern,
			})
		}
	}

	return slots, nil
}
