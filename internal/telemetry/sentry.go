// Package telemetry wires error reporting and tracing.
package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/JustinTDCT/Marquee/internal/logging"
)

var sentryEnabled bool

// InitSentry initializes error reporting. An empty dsn disables it.
func InitSentry(dsn, release string) error {
	if dsn == "" {
		logging.For("telemetry").Info("SENTRY_DSN not set, error reporting disabled")
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Release:          release,
		AttachStacktrace: true,
		Tags:             map[string]string{"service": "marquee"},
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			return scrub(event)
		},
	})
	if err != nil {
		return fmt.Errorf("sentry init: %w", err)
	}
	sentryEnabled = true
	return nil
}

// CaptureError reports err with tags. Safe to call when reporting is disabled.
func CaptureError(err error, tags map[string]string) {
	if err == nil || !sentryEnabled {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

func Flush() {
	if sentryEnabled {
		sentry.Flush(2 * time.Second)
	}
}

func scrub(event *sentry.Event) *sentry.Event {
	if event == nil {
		return nil
	}
	event.User.Email = ""
	event.User.IPAddress = ""
	if event.Request != nil {
		for k := range event.Request.Headers {
			switch k {
			case "Authorization", "Cookie", "Apikey":
				event.Request.Headers[k] = "[redacted]"
			}
		}
	}
	return event
}
