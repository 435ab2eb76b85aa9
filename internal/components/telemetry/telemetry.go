package telemetry

import (
	"fmt"
)

// API is the logging and metrics surface every component reports through,
// tests swap it for a Recorder to assert on what was reported.
type API interface {
	// ReportBroken reports a component that has broken in a way that should be addressed.
	//
	// The id names the component that broke, not the detail of how. A failed
	// portal login is `session.login`, the HTTP status goes into params.
	// Ids are lowercase, dots separate a component from its operation and
	// dashes join words.
	ReportBroken(id string, params ...any)

	// ReportWarning reports something worth investigating that did not break anything.
	ReportWarning(id string, params ...any)

	// ReportDebug reports detail that is only shown with --verbose.
	ReportDebug(msg string, params ...any)

	// ReportCount reports the running total of an event.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id (and debug message) with a namespace, so
// "sam" + "session.login" is reported as "sam: session.login".
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) scoped(id string) string {
	return fmt.Sprintf("%s: %s", s.namespace, id)
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.scoped(id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.scoped(id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.scoped(msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.scoped(id), count)
}

// Multi fans every report out to all of the given APIs.
type Multi []API

func (m Multi) ReportBroken(id string, params ...any) {
	for _, api := range m {
		api.ReportBroken(id, params...)
	}
}

func (m Multi) ReportWarning(id string, params ...any) {
	for _, api := range m {
		api.ReportWarning(id, params...)
	}
}

func (m Multi) ReportDebug(msg string, params ...any) {
	for _, api := range m {
		api.ReportDebug(msg, params...)
	}
}

func (m Multi) ReportCount(id string, count int64) {
	for _, api := range m {
		api.ReportCount(id, count)
	}
}
