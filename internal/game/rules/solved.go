package rules

import "github.com/louisbranch/latchkey.house/internal/game/domain"

// solvedFlags maps puzzle keys to the state flag that marks them solved, in
// game order.
var solvedFlags = []struct {
	Key  string
	Flag string
}{
	{PuzzleOfficeDoor, "officeDoor.unlocked"},
	{PuzzleMathsDoor, "mathsDoor.unlocked"},
	{PuzzleDarkLamp, "darkLamp.lit"},
	{PuzzleLibraryCipher, "libraryCipher.solved"},
	{PuzzleAtticShapes, "atticShapes.solved"},
	{PuzzleGame, "allDone"},
}

// SolvedPuzzles returns the keys of every puzzle the state marks solved, in
// game order.
func SolvedPuzzles(state domain.GameState) []string {
	var solved []string
	for _, entry := range solvedFlags {
		if state.Flag(entry.Flag) {
			solved = append(solved, entry.Key)
		}
	}
	return solved
}

// SolvedFlag returns the state flag marking a puzzle solved, if the key is
// known.
func SolvedFlag(puzzleKey string) (string, bool) {
	for _, entry := range solvedFlags {
		if entry.Key == puzzleKey {
			return entry.Flag, true
		}
	}
	return "", false
}
