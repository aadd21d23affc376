package config

const (
	defaultDataDir        = "~/.local/share/wai/data"
	defaultConfDir        = "~/.config/wai"
	defaultLogDir         = "~/.local/share/wai/logs"
	defaultAPIBind        = "0.0.0.0:8000"
	defaultSonarrTimeout  = 10
	defaultStageInterval  = 5
	defaultRipenessPerDay = 4
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			ConfDir: defaultConfDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Sonarr: Sonarr{
			TimeoutSeconds: defaultSonarrTimeout,
		},
		Workflow: Workflow{
			DecisionInterval: defaultStageInterval,
			AgingInterval:    defaultStageInterval,
			DownloadInterval: defaultStageInterval,
			RipenessPerDay:   defaultRipenessPerDay,
			RunDecision:      true,
			RunAging:         true,
			RunDownload:      true,
		},
		Policy: Policy{
			HonorUnmonitoredSeries:   true,
			HonorUnmonitoredEpisodes: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
