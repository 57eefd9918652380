package services

import (
	"errors"
	"fmt"
)

var (
	ErrLoad             = errors.New("dataset load failed")
	ErrUnknownChartKind = errors.New("unknown chart kind")
)

// LoadError is returned when a source cannot be read or lacks a required
// column. It is terminal for the request that triggered the load.
type LoadError struct {
	Source string
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load %s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("load %s: %s", e.Source, e.Reason)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func (e *LoadError) Is(target error) bool {
	return target == ErrLoad
}

type UnknownChartKindError struct {
	Name string
}

func (e *UnknownChartKindError) Error() string {
	return fmt.Sprintf("unknown chart kind %q", e.Name)
}

func (e *UnknownChartKindError) Is(target error) bool {
	return target == ErrUnknownChartKind
}
