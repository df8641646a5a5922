// internal/version/version.go
package version

// build is the protocol version string compared against connecting
// clients. It is bumped on any wire or route change so that stale
// frontends know to force-reload.
const build = "r13.3.1"

// Current returns the server's protocol version.
func Current() string {
	if build != "" {
		return build
	}
	return "(devel)"
}

// IsSet reports whether a concrete version was compiled in.
func IsSet() bool {
	return build != ""
}
