package polytlai

// Version information for polytlai.
// These values can be overridden at build time using ldflags:
//
//	go build -ldflags "-X github.com/ZaguanLabs/polytlai.GitCommit=$(git rev-parse HEAD)"
const (
	// Name is the application name.
	Name = "polytlai"

	// Description is a short description of the application.
	Description = "Parallel multi-provider AI translation with a judge model"

	// Version is the semantic version of the application.
	Version = "0.3.0"

	// Repository is the source code repository URL.
	Repository = "https://github.com/ZaguanLabs/polytlai"
)

// BuildInfo contains build-time information.
var (
	// GitCommit is the git commit hash.
	GitCommit = "unknown"

	// BuildDate is the build timestamp.
	BuildDate = "unknown"
)

// FullVersion returns the version string with optional build info.
func FullVersion() string {
	v := Version
	if GitCommit != "unknown" && GitCommit != "" {
		short := GitCommit
		if len(short) > 7 {
			short = short[:7]
		}
		v += "+" + short
	}
	return v
}

// UserAgent returns the user agent sent with provider requests.
func UserAgent() string {
	return Name + "/" + Version
}
