package upflb

import "errors"

// Sentinel errors returned by the Balancer and configuration loading.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrPolicyRequired is returned when the balancer is built without an assignment policy.
	ErrPolicyRequired = errors.New("assignment policy is required")

	// ErrAssignmentFailed is returned when the assignment pass fails.
	ErrAssignmentFailed = errors.New("assignment failed")

	// ErrPublishFailed is returned when the binding set could not be published.
	ErrPublishFailed = errors.New("binding publication failed")

	// ErrProgrammingFailed is returned when forwarding rules could not be applied.
	ErrProgrammingFailed = errors.New("forwarding rule programming failed")
)
