package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrDataUnavailable is returned when the dataset could not be fetched or parsed.
var ErrDataUnavailable = errors.New("dataset unavailable")

// ErrTransport is returned when a provisioning call fails at the network or protocol level.
var ErrTransport = errors.New("provisioning transport error")

// ErrFormat is returned when a change request does not carry both account and device tokens.
var ErrFormat = errors.New("invalid change request format")

// ErrInvalidEvent is returned when an event has an unknown kind or command.
var ErrInvalidEvent = errors.New("invalid event")
