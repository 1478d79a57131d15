// Package build holds the process-wide build-info constants (design note
// §9: "A process-wide build-info constant is acceptable" is the one global
// state this plugin allows itself). Values are overridden at link time via
// -ldflags, mirroring the teacher's own version-stamping convention.
package build

// Variables below are overridden by the release build via
// -ldflags "-X github.com/lightninglabs/hold/build.Commit=...".
var (
	// Version is the semantic version of this build.
	Version = "0.1.0"

	// Commit is the git commit hash this binary was built from.
	Commit = "unknown"

	// Tags lists the build tags compiled in, space-separated.
	Tags = ""
)

// PkgName is the plugin's package name (spec.md §6). The TLS certificate
// SANs and the pluginrpc plugin name spell the same value as literals
// rather than referring to this constant.
const PkgName = "hold"

// String renders the build-info constants as reported in GetInfo
// responses.
func String() string {
	v := Version
	if Commit != "unknown" && Commit != "" {
		v += "-" + Commit
	}
	if Tags != "" {
		v += " (" + Tags + ")"
	}

	return v
}
