// Package rules is the sole home of the game's transition rules: a pure
// reducer from (location, state, action) to (location, state).
//
// Every location enumerates the action types legal there; anything else is a
// classified invalid-transition error rather than a silent no-op, so a UI
// offering an action the rules do not know about fails loudly during
// integration instead of quietly corrupting the history.
package rules
