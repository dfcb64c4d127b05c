package version

// Current is the released version, without a "v" prefix.
const Current = "0.1.0"

// Commit is set at build time with -ldflags "-X .../internal/version.Commit=<sha>".
var Commit = ""

// String renders the version line printed by the CLI.
func String() string {
	if Commit == "" {
		return Current
	}
	return Current + " (" + Commit + ")"
}
