// Package repository contains data access logic separated from the service
// layer. The sentinel values below let services tell storage outcomes apart
// without inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when a row addressed by key does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert or update would violate a unique
// key (phone, email or unique code).
var ErrDuplicate = errors.New("duplicate")

// ErrTokenNotActive is returned when a refresh token hash is not in its
// owner's active list.
var ErrTokenNotActive = errors.New("refresh token not active")

// ErrSessionLimit is returned when an account already holds the maximum
// number of active refresh tokens.
var ErrSessionLimit = errors.New("session limit reached")

// ErrAlreadySettled is returned when a payment has already left pending.
var ErrAlreadySettled = errors.New("payment already settled")
