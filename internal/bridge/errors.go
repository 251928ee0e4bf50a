package bridge

import "errors"

// Domain errors for bridge operations.
var (
	// ErrUnknownDevice is returned when a DUID or topic slug does not match
	// a registered device.
	ErrUnknownDevice = errors.New("unknown device")

	// ErrMalformedTopic is returned for topics that do not have the
	// <root>/<slug>/<section>/<field...> shape.
	ErrMalformedTopic = errors.New("malformed topic")

	// ErrInvalidPattern is returned for subscription patterns that cannot
	// be turned into a topic.
	ErrInvalidPattern = errors.New("invalid subscription pattern")

	// ErrUndeclaredState is returned for inbound messages addressing a
	// state with no declared descriptor.
	ErrUndeclaredState = errors.New("undeclared state")
)
