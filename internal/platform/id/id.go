// Package id generates compact, URL-safe identifiers.
//
// Identifiers are version 4 UUIDs encoded as 26 lowercase base32 characters
// without padding, keeping them copy-paste friendly in storage keys and
// telemetry payloads.
package id

import (
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NewID returns a new random identifier.
func NewID() (string, error) {
	value, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	encoded := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(value[:])
	return strings.ToLower(encoded), nil
}
