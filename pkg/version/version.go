package version

// Application version information, set at build time with
// -ldflags "-X github.com/kdeps/mediacmd/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = ""
)

// String renders the version for --version output.
func String() string {
	if Commit == "" {
		return Version
	}
	return Version + " (" + Commit + ")"
}
