package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// applyEnv overlays the environment onto the file-derived config. The
// environment is authoritative: any set variable replaces the file value.
// Flag variables follow the "1 means on" convention.
func (c *Config) applyEnv() error {
	applyString("DATA_DIR", &c.Paths.DataDir)
	applyString("CONF_DIR", &c.Paths.ConfDir)
	applyString("WAI_OUT_PATH", &c.Paths.OutPath)
	applyString("WAI_OUT_TEMP", &c.Paths.OutTemp)
	applyString("WAI_LOG_DIR", &c.Paths.LogDir)
	applyString("WAI_API_BIND", &c.Paths.APIBind)

	applyString("SONARR_URL", &c.Sonarr.URL)
	applyString("SONARR_API", &c.Sonarr.APIKey)
	applyString("SONARR_IN_PATH", &c.Sonarr.InPath)

	if err := applyInt("AGING_RIPENESS_PER_DAY", &c.Workflow.RipenessPerDay); err != nil {
		return err
	}
	if err := applyInt("DECISION_QUEUE_INTERVAL", &c.Workflow.DecisionInterval); err != nil {
		return err
	}
	if err := applyInt("AGING_QUEUE_INTERVAL", &c.Workflow.AgingInterval); err != nil {
		return err
	}
	if err := applyInt("DOWNLOAD_QUEUE_INTERVAL", &c.Workflow.DownloadInterval); err != nil {
		return err
	}

	applyFlag("FLIP_FLOP_QUEUE", &c.Workflow.FlipFlopQueue)
	applyFlag("RUN_DECISION_QUEUE", &c.Workflow.RunDecision)
	applyFlag("RUN_AGING_QUEUE", &c.Workflow.RunAging)
	applyFlag("RUN_DOWNLOAD_QUEUE", &c.Workflow.RunDownload)

	applyFlag("HONOR_UNMON_SERIES", &c.Policy.HonorUnmonitoredSeries)
	applyFlag("HONOR_UNMON_EPS", &c.Policy.HonorUnmonitoredEpisodes)
	applyFlag("OVERWRITE_EPS", &c.Policy.OverwriteEpisodes)

	var debug bool
	if applyFlag("DEBUG_PRINT", &debug); debug {
		c.Logging.Level = "debug"
	}
	return nil
}

func applyString(key string, dst *string) {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		*dst = strings.TrimSpace(value)
	}
}

func applyInt(key string, dst *int) error {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return nil
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%s: expected integer, got %q", key, value)
	}
	*dst = parsed
	return nil
}

func applyFlag(key string, dst *bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return false
	}
	*dst = strings.TrimSpace(value) == "1"
	return true
}
