package build

// DeploymentType is an enum specifying the deployment to compile.
type DeploymentType byte

const (
	// Development is a deployment that lets the log type build flags
	// decide where sub-loggers write.
	Development DeploymentType = iota

	// Production is a deployment where sub-loggers only write to the
	// backend handed to NewSubLogger.
	Production
)

// String returns a human readable name for a build type.
func (b DeploymentType) String() string {
	switch b {
	case Development:
		return "development"
	case Production:
		return "production"
	default:
		return "unknown"
	}
}
