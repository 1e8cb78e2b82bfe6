// Unified error handling for the mover host
//
// Copyright (C) 2026  Mover Host Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package errors

import (
	"fmt"
	"runtime"
)

// ErrorCode represents the category of error
type ErrorCode string

const (
	// Configuration errors
	ErrConfigSection    ErrorCode = "CONFIG_SECTION"
	ErrConfigOption     ErrorCode = "CONFIG_OPTION"
	ErrConfigValidation ErrorCode = "CONFIG_VALIDATION"
	ErrConfigType       ErrorCode = "CONFIG_TYPE"

	// Calibration errors
	ErrInvalidAxesMapping ErrorCode = "INVALID_AXES_MAPPING"
	ErrCalibrationState   ErrorCode = "CALIBRATION_STATE"

	// Transform estimation errors
	ErrInsufficientData        ErrorCode = "INSUFFICIENT_DATA"
	ErrDegenerateConfiguration ErrorCode = "DEGENERATE_CONFIGURATION"

	// Stage driver errors
	ErrStageCommunication ErrorCode = "STAGE_COMMUNICATION"

	// Path planning errors
	ErrPathPlanning ErrorCode = "PATH_PLANNING"
	ErrNoProgress   ErrorCode = "NO_PROGRESS"

	// Runtime errors
	ErrRuntime     ErrorCode = "RUNTIME"
	ErrRuntimeInit ErrorCode = "RUNTIME_INIT"
	ErrPersistence ErrorCode = "PERSISTENCE"
)

// MoverError is the unified error type for the mover host
type MoverError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Stage is the identifier of the stage involved (if applicable)
	Stage string

	// Operation is the operation that was attempted (if applicable)
	Operation string

	// CurrentState is the calibration state at the time of the error
	CurrentState string

	// RequiredState is the minimum state the operation requires
	RequiredState string

	// Err wraps the underlying error
	Err error

	// Context provides additional context
	Context map[string]interface{}
}

// Error implements the error interface
func (e *MoverError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("[%s:%s] %s", e.Code, e.Stage, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *MoverError) Unwrap() error {
	return e.Err
}

// SetStage sets the stage identifier
func (e *MoverError) SetStage(stage string) *MoverError {
	e.Stage = stage
	return e
}

// SetOperation sets the attempted operation
func (e *MoverError) SetOperation(op string) *MoverError {
	e.Operation = op
	return e
}

// SetStates sets the current and required calibration states
func (e *MoverError) SetStates(current, required string) *MoverError {
	e.CurrentState = current
	e.RequiredState = required
	return e
}

// SetContext adds additional context
func (e *MoverError) SetContext(key string, value interface{}) *MoverError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Wrap wraps an existing error with additional context
func Wrap(err error, code ErrorCode, message string) *MoverError {
	return &MoverError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// New creates a new MoverError
func New(code ErrorCode, message string) *MoverError {
	return &MoverError{
		Code:    code,
		Message: message,
	}
}

// Config errors

// ConfigSectionError creates an error for missing config section
func ConfigSectionError(section string) *MoverError {
	return New(ErrConfigSection, fmt.Sprintf("section '%s' not found", section))
}

// ConfigOptionError creates an error for missing or invalid config option
func ConfigOptionError(section, option string) *MoverError {
	return New(ErrConfigOption, fmt.Sprintf("option '%s' not found in section '%s'", option, section))
}

// ConfigValidationError creates an error for config validation failure
func ConfigValidationError(section, option string, reason string) *MoverError {
	return New(ErrConfigValidation, fmt.Sprintf("option '%s' in section '%s': %s", option, section, reason))
}

// ConfigTypeError creates an error for config type conversion failure
func ConfigTypeError(section, option, value string, targetType string, err error) *MoverError {
	return Wrap(err, ErrConfigType, fmt.Sprintf("option '%s' in section '%s': failed to parse '%s' as %s", option, section, value, targetType))
}

// Calibration errors

// InvalidAxesMappingError creates an error for an axes mapping that is not a
// valid signed bijection
func InvalidAxesMappingError(stage string, mapping string) *MoverError {
	return New(ErrInvalidAxesMapping, fmt.Sprintf("axes mapping %s is not a valid signed bijection", mapping)).
		SetStage(stage)
}

// CalibrationStateError creates an error for an operation attempted below its
// required calibration state
func CalibrationStateError(stage, operation, current, required string) *MoverError {
	return New(ErrCalibrationState, fmt.Sprintf("operation '%s' requires state '%s', stage is '%s'", operation, required, current)).
		SetStage(stage).
		SetOperation(operation).
		SetStates(current, required)
}

// Transform estimation errors

// InsufficientDataError creates an error for an estimation attempt without
// enough coordinate pairings
func InsufficientDataError(got int) *MoverError {
	return New(ErrInsufficientData, fmt.Sprintf("transform estimation requires at least one pairing, got %d", got))
}

// DegenerateConfigurationError creates an error for a pairing set that does
// not determine a rotation (e.g. collinear points)
func DegenerateConfigurationError(reason string) *MoverError {
	return New(ErrDegenerateConfiguration, fmt.Sprintf("pairing set does not determine a rotation: %s", reason))
}

// Stage driver errors

// StageCommunicationError creates an error for a driver-level failure
func StageCommunicationError(stage, operation string, err error) *MoverError {
	return Wrap(err, ErrStageCommunication, fmt.Sprintf("stage driver %s failed", operation)).
		SetStage(stage).
		SetOperation(operation)
}

// Path planning errors

// PathPlanningError creates a general planning error
func PathPlanningError(message string) *MoverError {
	return New(ErrPathPlanning, message)
}

// NoProgressError creates an error for a planner deadlock
func NoProgressError(steps int) *MoverError {
	return New(ErrNoProgress, fmt.Sprintf("path-finding algorithm makes no progress after %d steps", steps))
}

// Runtime errors

// RuntimeError creates a general runtime error
func RuntimeError(message string) *MoverError {
	return New(ErrRuntime, message)
}

// RuntimeErrorInit creates an error for initialization failure
func RuntimeErrorInit(component string, reason string) *MoverError {
	return New(ErrRuntimeInit, fmt.Sprintf("failed to initialize %s: %s", component, reason))
}

// PersistenceError creates an error for calibration persistence failure
func PersistenceError(operation string, err error) *MoverError {
	return Wrap(err, ErrPersistence, fmt.Sprintf("calibration persistence %s failed", operation))
}

// RecoverPanic safely recovers from panic and converts to error
func RecoverPanic() *MoverError {
	if r := recover(); r != nil {
		var err error
		switch x := r.(type) {
		case string:
			err = RuntimeError(fmt.Sprintf("panic: %s", x))
		case runtime.Error:
			err = RuntimeError(x.Error())
		case error:
			err = RuntimeError(x.Error())
		default:
			err = RuntimeError(fmt.Sprintf("panic: %v", x))
		}
		return err.(*MoverError)
	}
	return nil
}

// Is checks if error matches given error code
func Is(err error, code ErrorCode) bool {
	if moverErr, ok := err.(*MoverError); ok {
		return moverErr.Code == code
	}
	return false
}

// IsConfig checks if error is a config error
func IsConfig(err error) bool {
	return Is(err, ErrConfigSection) ||
		Is(err, ErrConfigOption) ||
		Is(err, ErrConfigValidation) ||
		Is(err, ErrConfigType)
}

// IsCalibration checks if error is a calibration error
func IsCalibration(err error) bool {
	return Is(err, ErrInvalidAxesMapping) ||
		Is(err, ErrCalibrationState) ||
		Is(err, ErrInsufficientData) ||
		Is(err, ErrDegenerateConfiguration)
}

// IsPlanning checks if error is a path planning error
func IsPlanning(err error) bool {
	return Is(err, ErrPathPlanning) ||
		Is(err, ErrNoProgress)
}
