// internal/workers/job/create-job/config.go
package createjob

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		// Creation may fan out to the translation service per sibling.
		Timeout: 60 * time.Second,
	}
}
