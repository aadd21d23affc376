package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. The three Sonarr settings
// have no workable defaults, so their absence is a startup-fatal error.
func (c *Config) Validate() error {
	if err := c.validateSonarr(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set (DATA_DIR)")
	}
	return nil
}

func (c *Config) validateSonarr() error {
	if strings.TrimSpace(c.Sonarr.URL) == "" {
		return errors.New("sonarr.url is required: set SONARR_URL")
	}
	if strings.TrimSpace(c.Sonarr.APIKey) == "" {
		return errors.New("sonarr.api_key is required: set SONARR_API")
	}
	if strings.TrimSpace(c.Sonarr.InPath) == "" {
		return errors.New("sonarr.in_path is required: set SONARR_IN_PATH")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	for name, value := range map[string]int{
		"workflow.decision_interval": c.Workflow.DecisionInterval,
		"workflow.aging_interval":    c.Workflow.AgingInterval,
		"workflow.download_interval": c.Workflow.DownloadInterval,
		"workflow.ripeness_per_day":  c.Workflow.RipenessPerDay,
		"sonarr.timeout_seconds":     c.Sonarr.TimeoutSeconds,
	} {
		if value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, value)
		}
	}
	return nil
}
