// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

package fleet

import (
	"errors"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// ErrNotFound is wrapped by repositories when a record does not exist.
var ErrNotFound = errors.New("not found")

// Validation codes. These are expected business outcomes that the caller
// reports back to the player.
const (
	CodeDroneNotFound        = "DRONE_NOT_FOUND"
	CodeAccountNotFound      = "ACCOUNT_NOT_FOUND"
	CodeWrongState           = "WRONG_STATE"
	CodeUnknownDestination   = "UNKNOWN_DESTINATION"
	CodeAlreadyAtDestination = "ALREADY_AT_DESTINATION"
	CodeActionNotSupported   = "ACTION_NOT_SUPPORTED"
	CodeNoResources          = "NO_RESOURCES"
	CodeNoMarket             = "NO_MARKET"
	CodeNoRefuel             = "NO_REFUEL"
	CodeCargoEmpty           = "CARGO_EMPTY"
	CodeTankFull             = "TANK_FULL"
	CodeInsufficientCredits  = "INSUFFICIENT_CREDITS"
	CodeInvalidAmount        = "INVALID_AMOUNT"
	CodeInvalidID            = "INVALID_ID"
)

// Fault codes. These indicate corrupted state or configuration and fail the
// operation loudly.
const (
	CodeDataIntegrity = "DATA_INTEGRITY"
	CodeConflict      = "VERSION_CONFLICT"
)

var validationCodes = map[string]bool{
	CodeDroneNotFound:        true,
	CodeAccountNotFound:      true,
	CodeWrongState:           true,
	CodeUnknownDestination:   true,
	CodeAlreadyAtDestination: true,
	CodeActionNotSupported:   true,
	CodeNoResources:          true,
	CodeNoMarket:             true,
	CodeNoRefuel:             true,
	CodeCargoEmpty:           true,
	CodeTankFull:             true,
	CodeInsufficientCredits:  true,
	CodeInvalidAmount:        true,
	CodeInvalidID:            true,
}

// RegisterValidationCode marks an additional oops code as a validation failure.
// It must be called during package initialisation.
func RegisterValidationCode(code string) {
	validationCodes[code] = true
}

// IsValidation reports whether err is an expected business failure rather
// than a fault.
func IsValidation(err error) bool {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return false
	}
	code, _ := oopsErr.Code().(string)
	return validationCodes[code]
}

// DroneNotFound reports a missing drone. Drones owned by someone else are
// reported the same way.
func DroneNotFound(id ulid.ULID) error {
	return oops.Code(CodeDroneNotFound).With("drone_id", id.String()).Errorf("drone not found")
}

// WrongState reports a command issued in a state that does not allow it.
func WrongState(id ulid.ULID, status Status, action string) error {
	return oops.Code(CodeWrongState).
		With("drone_id", id.String()).
		With("status", string(status)).
		With("action", action).
		Errorf("cannot %s while %s", action, status)
}

// Integrity reports a record or configuration inconsistency.
func Integrity(format string, args ...any) error {
	return oops.Code(CodeDataIntegrity).Errorf(format, args...)
}
