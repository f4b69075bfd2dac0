package domain

// PlayerMode distinguishes real players from admin and tester traversals.
// It is passed explicitly into the rules engine and the options builder
// instead of being read from ambient storage, so test traversals never
// pollute production statistics.
type PlayerMode int

const (
	// PlayerModeNormal is a regular player.
	PlayerModeNormal PlayerMode = iota
	// PlayerModeAdmin unlocks admin shortcuts and suppresses statistics.
	PlayerModeAdmin
	// PlayerModeTester behaves like a player but suppresses statistics.
	PlayerModeTester
)

// ParsePlayerMode maps a configuration string to a PlayerMode. Unknown
// values fall back to normal.
func ParsePlayerMode(value string) PlayerMode {
	switch value {
	case "admin":
		return PlayerModeAdmin
	case "tester":
		return PlayerModeTester
	}
	return PlayerModeNormal
}

// String returns the configuration name of the mode.
func (m PlayerMode) String() string {
	switch m {
	case PlayerModeAdmin:
		return "admin"
	case PlayerModeTester:
		return "tester"
	}
	return "normal"
}

// RecordsStatistics reports whether traversals in this mode should count
// toward shared progress statistics.
func (m PlayerMode) RecordsStatistics() bool {
	return m == PlayerModeNormal
}
