package errors

import sterrors "errors"

var (
	ErrPublisherRequired  = sterrors.New("expostream: publisher is required")
	ErrGeneratorRequired  = sterrors.New("expostream: generator is required")
	ErrInvalidProfile     = sterrors.New("expostream: invalid venue profile")
	ErrSubscriberRequired = sterrors.New("expostream: subscriber is required")
	ErrStoreRequired      = sterrors.New("expostream: store is required")
	ErrTopicRequired      = sterrors.New("expostream: topic is required")
	ErrEventRequired      = sterrors.New("expostream: event payload is required")
	ErrConfigRequired     = sterrors.New("expostream: configuration is required")
	ErrLoggerRequired     = sterrors.New("expostream: logger is required")
	ErrUnknownTopic       = sterrors.New("expostream: unknown topic")
	ErrUnknownPavilion    = sterrors.New("expostream: unknown pavilion")
)

// ConfigValidationError marks a configuration that was parsed but failed validation.
type ConfigValidationError struct {
	Err error
}

func (e ConfigValidationError) Error() string {
	return "expostream: invalid configuration: " + e.Err.Error()
}

func (e ConfigValidationError) Unwrap() error { return e.Err }
