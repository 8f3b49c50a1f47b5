package build

import "fmt"

// Commit stores the current commit of this build. It is set with
// -ldflags "-X github.com/lightningnetwork/lninvoice/build.Commit=...".
var Commit string

const (
	// AppMajor defines the major version of this binary.
	AppMajor uint = 0

	// AppMinor defines the minor version of this binary.
	AppMinor uint = 1

	// AppPatch defines the application patch for this binary.
	AppPatch uint = 0

	// AppPreRelease is appended to the semantic version when not empty.
	AppPreRelease = "beta"
)

// Version returns the application version formatted according to semantic
// versioning 2.0.0 (http://semver.org/).
func Version() string {
	version := fmt.Sprintf("%d.%d.%d", AppMajor, AppMinor, AppPatch)
	if AppPreRelease != "" {
		version += "-" + AppPreRelease
	}

	return version
}
