package stt

import (
	"errors"
	"fmt"
)

// ErrEngineUnavailable is returned when the selected engine was not compiled in.
var ErrEngineUnavailable = errors.New("stt engine not available in this build")

// ModelLoadError marks a model resource that could not be loaded.
type ModelLoadError struct {
	Path string
	Err  error
}

func (e *ModelLoadError) Error() string {
	if e == nil || e.Err == nil {
		return "load model"
	}
	return fmt.Sprintf("load model %s: %v", e.Path, e.Err)
}

func (e *ModelLoadError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// RecognizerError marks a failure inside the recognizer itself.
type RecognizerError struct {
	Op  string
	Err error
}

func (e *RecognizerError) Error() string {
	if e == nil || e.Err == nil {
		return "recognizer error"
	}
	return fmt.Sprintf("recognizer %s: %v", e.Op, e.Err)
}

func (e *RecognizerError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewRecognizerError wraps err unless it already is a RecognizerError.
func NewRecognizerError(op string, err error) error {
	if err == nil {
		return nil
	}
	var recErr *RecognizerError
	if errors.As(err, &recErr) {
		return err
	}
	return &RecognizerError{Op: op, Err: err}
}

func IsModelLoadError(err error) bool {
	var target *ModelLoadError
	return errors.As(err, &target)
}

func IsRecognizerError(err error) bool {
	var target *RecognizerError
	return errors.As(err, &target)
}
