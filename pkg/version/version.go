// Package version provides version information for the oracle-twap service.
package version

// Version is the current version of the oracle-twap service.
const Version = "0.3.0"

// AgentString returns the user agent sent to upstream price servers.
// Format: oracle-twap/v{version}
func AgentString() string {
	return "oracle-twap/v" + Version
}
