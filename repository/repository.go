// Package repository holds the gorm-backed stores of the reminder engine.
package repository

import "errors"

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("record not found")
