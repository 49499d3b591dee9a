// internal/workers/job/archive-jobs/config.go
package archivejobs

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		// Bulk archives touch every family member plus the cascade tables.
		Timeout: 60 * time.Second,
	}
}
