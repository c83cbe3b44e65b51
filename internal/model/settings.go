package model

import "time"

// Settings are the user settings of a tasksync client, usually loaded from a
// config file. Zero values mean "use the default".
type Settings struct {
	APIURL               string
	Token                string
	DBPath               string
	OfflineFlagFile      string
	PlatformConnectivity bool
	RequestTimeout       time.Duration
	ReplayRate           float64
	MaxAttempts          int
}
