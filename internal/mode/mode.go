// Package mode derives the development or production mode of a build from the
// process environment.
package mode

import "os"

// WatchEnv is set by file-watching invocations. Its presence selects development mode.
const WatchEnv = "BUNDLE_WATCH"

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Mode is resolved once per configuration load and never changes afterwards.
type Mode struct {
	Production bool
}

// Resolve reports production unless WatchEnv is present. The value is ignored,
// so an empty string still selects development.
func Resolve(lookup LookupFunc) Mode {
	_, watching := lookup(WatchEnv)
	return Mode{Production: !watching}
}

// FromEnv resolves the mode from the process environment.
func FromEnv() Mode {
	return Resolve(os.LookupEnv)
}

// Development is the inverse of Production.
func (m Mode) Development() bool {
	return !m.Production
}

func (m Mode) String() string {
	if m.Production {
		return "production"
	}
	return "development"
}
