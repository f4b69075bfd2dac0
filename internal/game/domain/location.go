package domain

// LocationID names a room of the house.
type LocationID string

const (
	// LocationOffice is the room the game starts in.
	LocationOffice LocationID = "office"
	// LocationMaths holds the dial-cipher door puzzle.
	LocationMaths LocationID = "maths"
	// LocationDark is pitch black until the lamp is lit.
	LocationDark LocationID = "dark"
	// LocationLibrary holds the book cipher.
	LocationLibrary LocationID = "library"
	// LocationAttic holds the shape puzzle and the terminal action.
	LocationAttic LocationID = "attic"
	// LocationCredits is the terminal scene after finishing the game.
	LocationCredits LocationID = "credits"
)

// StartLocation is where a fresh history begins.
const StartLocation = LocationOffice

// KnownLocation reports whether id names a room of the house.
func KnownLocation(id LocationID) bool {
	switch id {
	case LocationOffice, LocationMaths, LocationDark, LocationLibrary, LocationAttic, LocationCredits:
		return true
	}
	return false
}
