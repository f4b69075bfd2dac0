// Package storage declares the persistence interfaces consumed by the game
// and telemetry cores, along with shared storage errors.
//
// Implementations live in subpackages: bbolt backs the durable local
// key/value store, sqlite backs the remote document collections.
package storage
