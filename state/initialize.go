package state

import (
	"net/http"
	"time"
)

// newLocalEnv creates a new LocalEnv instance with default values. Per request
// limits are applied by image resolver from configuration, client itself only
// bounds connection setup.
func newLocalEnv() *LocalEnv {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 8
	return &LocalEnv{
		start:  time.Now(),
		Client: &http.Client{Transport: transport},
	}
}
