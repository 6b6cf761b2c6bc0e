package provider

import (
	"time"

	"github.com/angas/skyphase/config"
)

// OptionsFromConfig builds client options for one upstream from the shared provider section.
func OptionsFromConfig(name string, baseURL string, c config.AppConfigProvider, version string) Options {
	return Options{
		Name:             name,
		BaseURL:          baseURL,
		Timeout:          c.GetTimeout(),
		RetryCount:       c.GetRetryCount(),
		RetryWaitTime:    500 * time.Millisecond,
		RetryMaxWaitTime: 5 * time.Second,
		BreakerThreshold: c.GetBreakerThreshold(),
		UserAgent:        "skyphase/" + version,
	}
}
