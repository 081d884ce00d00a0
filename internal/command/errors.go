// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

package command

import (
	"fmt"
	"time"

	"github.com/samber/oops"

	"github.com/voidops/voidops/internal/fleet"
)

// Error codes for command dispatch failures.
const (
	CodeUnknownCommand = "UNKNOWN_COMMAND"
	CodeInvalidArgs    = "INVALID_ARGS"
	CodeRateLimited    = "RATE_LIMITED"
)

func init() {
	fleet.RegisterValidationCode(CodeUnknownCommand)
	fleet.RegisterValidationCode(CodeInvalidArgs)
	fleet.RegisterValidationCode(CodeRateLimited)
}

// ErrUnknownCommand creates an error for an unknown command.
func ErrUnknownCommand(cmd string) error {
	return oops.Code(CodeUnknownCommand).
		With("command", cmd).
		Errorf("unknown command: %s", cmd)
}

// ErrInvalidArgs creates an error for invalid arguments.
func ErrInvalidArgs(cmd Kind, reason string) error {
	return oops.Code(CodeInvalidArgs).
		With("command", string(cmd)).
		With("usage", usage(cmd)).
		Errorf("invalid arguments: %s", reason)
}

// ErrRateLimited creates an error for rate limiting.
func ErrRateLimited(retryAfter time.Duration) error {
	return oops.Code(CodeRateLimited).
		With("retry_after_ms", retryAfter.Milliseconds()).
		Errorf("Too many commands. Please slow down.")
}

const genericMessage = "Something went wrong. Try again."

// PlayerMessage extracts a player-facing message from an error.
func PlayerMessage(err error) string {
	if err == nil {
		return genericMessage
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return genericMessage
	}
	ctx := oopsErr.Context()
	str := func(key string) string {
		s, _ := ctx[key].(string)
		return s
	}

	switch oopsErr.Code() {
	case CodeUnknownCommand:
		return "Unknown command."
	case CodeInvalidArgs:
		if u := str("usage"); u != "" {
			return "Usage: " + u
		}
		return "Invalid arguments."
	case CodeRateLimited:
		return "Too many commands. Please slow down."
	case fleet.CodeDroneNotFound, fleet.CodeInvalidID:
		return "Drone not found."
	case fleet.CodeAccountNotFound:
		return "Account not found."
	case fleet.CodeWrongState:
		if status, action := str("status"), str("action"); status != "" && action != "" {
			return fmt.Sprintf("Drone is %s, cannot %s.", status, action)
		}
		return "Drone is busy."
	case fleet.CodeUnknownDestination:
		return "Unknown destination: " + str("destination_id")
	case fleet.CodeAlreadyAtDestination:
		return "Drone is already at that location."
	case fleet.CodeActionNotSupported:
		return "This drone type cannot mine."
	case fleet.CodeNoResources:
		return "No minable resources at this location."
	case fleet.CodeNoMarket:
		return "No market at current location."
	case fleet.CodeNoRefuel:
		return "No refueling available here."
	case fleet.CodeCargoEmpty:
		return "No cargo to sell."
	case fleet.CodeTankFull:
		return "Fuel tank already full."
	case fleet.CodeInsufficientCredits:
		need, _ := ctx["need"].(float64)
		have, _ := ctx["have"].(float64)
		return fmt.Sprintf("Insufficient credits. Need %.2f, have %.2f.", need, have)
	case fleet.CodeInvalidAmount:
		return "Amount must be positive."
	default:
		return genericMessage
	}
}
