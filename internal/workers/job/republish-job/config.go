// internal/workers/job/republish-job/config.go
package republishjob

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		// Republish runs the whole creation pipeline on the clone.
		Timeout: 60 * time.Second,
	}
}
