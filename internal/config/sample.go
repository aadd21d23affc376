package config

import (
	"fmt"
	"os"
)

const sampleConfig = `# wai configuration.
# Environment variables override every value in this file.

[paths]
# data_dir holds the queue files and the history archives.
data_dir = "~/.local/share/wai"
# conf_dir is scanned for yt-dlp.conf, netrc, and cookies.txt.
conf_dir = "~/.config/wai"
# out_path is the library staging directory the import watches.
out_path = "/mnt/media/staging"
# out_temp, when set, receives downloads before they are moved into out_path.
# Useful when staging lives on slow or remote storage.
#out_temp = "/tmp/wai"
log_dir = "~/.local/share/wai/logs"
api_bind = "0.0.0.0:8000"

[sonarr]
url = "http://localhost:8989"
api_key = ""
# in_path is out_path as the Sonarr container sees it.
in_path = "/import"
timeout_seconds = 10

[workflow]
decision_interval = 5
aging_interval = 5
download_interval = 5
ripeness_per_day = 4
flip_flop_queue = false
run_decision = true
run_aging = true
run_download = true

[policy]
honor_unmonitored_series = true
honor_unmonitored_episodes = true
overwrite_episodes = false

[logging]
format = "console"
level = "info"
`

// CreateSample writes a commented sample configuration file.
func CreateSample(path string) error {
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
