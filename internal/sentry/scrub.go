// Package sentry provides data scrubbing utilities for Sentry events
// to ensure credentials and tokens are not transmitted to the error tracking service.
package sentry

import (
	"net/url"
	"strings"

	"github.com/getsentry/sentry-go"
)

const filtered = "[Filtered]"

// sensitiveHeaders are HTTP headers that should be redacted from Sentry events.
var sensitiveHeaders = map[string]bool{
	"Authorization": true,
	"Cookie":        true,
	"Set-Cookie":    true,
}

// sensitiveKeys are field names that may contain sensitive data in tags,
// breadcrumb metadata or query strings. Matched case-insensitively.
var sensitiveKeys = map[string]bool{
	"password":      true,
	"passwordhash":  true,
	"token":         true,
	"verifytoken":   true,
	"resettoken":    true,
	"secret":        true,
	"jwt":           true,
	"authorization": true,
	"cookie":        true,
}

func isSensitive(key string) bool {
	return sensitiveKeys[strings.ToLower(key)]
}

// ScrubEvent removes sensitive data from a Sentry event before it is sent.
// It redacts sensitive headers and query parameters, strips request bodies,
// and scrubs tags and breadcrumbs.
func ScrubEvent(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	if event.Request != nil {
		for header := range event.Request.Headers {
			if sensitiveHeaders[header] {
				event.Request.Headers[header] = filtered
			}
		}
		// Bodies may carry passwords and reset tokens.
		event.Request.Data = ""
		// WebSocket handshakes carry the JWT as ?token=.
		event.Request.QueryString = scrubQuery(event.Request.QueryString)
		if u, err := url.Parse(event.Request.URL); err == nil && u.RawQuery != "" {
			u.RawQuery = scrubQuery(u.RawQuery)
			event.Request.URL = u.String()
		}
	}

	for key := range event.Tags {
		if isSensitive(key) {
			event.Tags[key] = filtered
		}
	}

	for i := range event.Breadcrumbs {
		for key := range event.Breadcrumbs[i].Data {
			if isSensitive(key) {
				event.Breadcrumbs[i].Data[key] = filtered
			}
		}
	}

	return event
}

// scrubQuery redacts sensitive values in a raw query string. Unparseable
// query strings are dropped.
func scrubQuery(raw string) string {
	if raw == "" {
		return raw
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return ""
	}
	for key := range values {
		if isSensitive(key) {
			values[key] = []string{filtered}
		}
	}
	return values.Encode()
}

// ScrubTransaction applies the same scrubbing logic to transaction events.
func ScrubTransaction(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	return ScrubEvent(event, hint)
}
