// Package domain holds the core game data model: locations, actions, game
// state and the append-only visit history that every other game package is
// derived from.
//
// History values are immutable by convention. Nothing in this package or its
// consumers mutates an existing History; operations build and return new
// values so earlier snapshots stay valid.
package domain
