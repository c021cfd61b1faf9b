package scheduler

import "time"

// Config tunes the billing sweeps. Zero values fall back to safe defaults.
type Config struct {
	RunInterval time.Duration
	BatchSize   int
	// DueInDays is how far in the future generated bills fall due.
	DueInDays int
	// EnabledJobs whitelists jobs by name; empty enables everything.
	EnabledJobs []string
}

func (c Config) withDefaults() Config {
	if c.RunInterval <= 0 {
		c.RunInterval = time.Minute
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.DueInDays <= 0 {
		c.DueInDays = 15
	}
	return c
}

func (c Config) isJobEnabled(name string) bool {
	if len(c.EnabledJobs) == 0 {
		return true
	}
	for _, job := range c.EnabledJobs {
		if job == name {
			return true
		}
	}
	return false
}
