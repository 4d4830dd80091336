// Package version provides version information for the crypto-intel application.
package version

// Version is the current version of the crypto-intel application.
const Version = "0.3.1"

// AgentString returns the full agent string with versioning.
// Format: crypto-intel@v{version}
func AgentString() string {
	return "crypto-intel@v" + Version
}
