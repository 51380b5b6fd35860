package domain

import "errors"

// ErrParamsNotFound is returned when no transaction parameters are stored under a key.
var ErrParamsNotFound = errors.New("transaction parameters not found")

// ErrUnknownTransactionType is returned for a type outside the supported set.
var ErrUnknownTransactionType = errors.New("unknown transaction type")

// ErrInvalidPhone is returned when the counterpart number is malformed.
var ErrInvalidPhone = errors.New("invalid phone number")

// ErrInvalidAmount is returned when the amount is not a positive decimal.
var ErrInvalidAmount = errors.New("invalid amount")

// ErrInvalidPIN is returned when a PIN is not all digits or too short.
var ErrInvalidPIN = errors.New("invalid pin")

// ErrNotAwaitingPIN is returned by SubmitPIN outside the PinPrompt step.
var ErrNotAwaitingPIN = errors.New("automation is not waiting for a pin")

// ErrAutomationUnavailable is returned when the host cannot observe or drive dialogs.
var ErrAutomationUnavailable = errors.New("automation service unavailable")

// ErrNoActiveDialog is returned by hosts when no USSD dialog is on screen.
var ErrNoActiveDialog = errors.New("no active ussd dialog")

// ErrControllerClosed is returned for operations issued after Close.
var ErrControllerClosed = errors.New("controller closed")

// ErrEmptyCode is returned when a dial request carries no USSD code.
var ErrEmptyCode = errors.New("empty ussd code")
