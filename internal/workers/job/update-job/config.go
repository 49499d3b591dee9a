// internal/workers/job/update-job/config.go
package updatejob

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		// Updates may re-translate changed fields across the family.
		Timeout: 60 * time.Second,
	}
}
