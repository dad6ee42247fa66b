package jsaudit

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is matching.
var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrModelCallFailed      = errors.New("model call failed")
)

// ConfigError describes a configuration problem detected before any model call.
type ConfigError struct {
	Field  string // e.g. "max_chunk_size", "prompts.summary"
	Reason string
	Err    error // Optional underlying cause
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid configuration: %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// Unwrap returns the underlying cause.
func (e *ConfigError) Unwrap() error { return e.Err }

// Is matches ErrInvalidConfiguration.
func (e *ConfigError) Is(target error) bool { return target == ErrInvalidConfiguration }

// MissingPlaceholderError is returned when a template references a binding
// that was not supplied.
type MissingPlaceholderError struct {
	Name string
}

// Error implements the error interface.
func (e *MissingPlaceholderError) Error() string {
	return fmt.Sprintf("missing placeholder binding %q", e.Name)
}

// StageKind identifies the pipeline step a model call belongs to.
type StageKind int

// Stage kinds.
const (
	StageSingle StageKind = iota
	StageChunk
	StageSummary
)

// Stage locates a model call within one Analyze invocation.
type Stage struct {
	Kind  StageKind
	Index int // 1-based chunk index, StageChunk only
	Total int // Chunk count, StageChunk only
}

// String returns "single", "chunk i of N" or "summary".
func (s Stage) String() string {
	switch s.Kind {
	case StageSingle:
		return "single"
	case StageChunk:
		return fmt.Sprintf("chunk %d of %d", s.Index, s.Total)
	case StageSummary:
		return "summary"
	default:
		return "unknown"
	}
}

// ModelCallError reports a failed model call and the stage it happened in.
type ModelCallError struct {
	Stage Stage
	Err   error
}

// Error implements the error interface.
func (e *ModelCallError) Error() string {
	return fmt.Sprintf("model call failed (%s): %v", e.Stage, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ModelCallError) Unwrap() error { return e.Err }

// Is matches ErrModelCallFailed.
func (e *ModelCallError) Is(target error) bool { return target == ErrModelCallFailed }
