package processor

import "fmt"

// DecodeError marks a payload that could not be parsed. Such messages are
// never redelivered.
type DecodeError struct {
	Topic string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode message from %s: %v", e.Topic, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// PersistError marks a store write that did not commit.
type PersistError struct {
	Topic string
	Err   error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist message from %s: %v", e.Topic, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }
