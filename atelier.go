package atelier

const (
	// Name is the service name reported in logs and health responses
	Name = "atelier"

	// Version is the current service version
	Version = "0.1.0"
)
