// Package content holds the embedded narrative/option catalog and the option
// builder that decides what the presentation layer may offer at any point.
package content

import (
	"embed"
	"fmt"
	"slices"

	"github.com/louisbranch/latchkey.house/internal/game/domain"
	"github.com/louisbranch/latchkey.house/internal/game/projection"
	"github.com/louisbranch/latchkey.house/internal/game/rules"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogFS embed.FS

// Option is one action the presentation layer may offer.
type Option struct {
	Action   string            `yaml:"action" json:"action"`
	To       domain.LocationID `yaml:"to,omitempty" json:"to,omitempty"`
	Label    string            `yaml:"label" json:"label"`
	Requires []string          `yaml:"requires,omitempty" json:"-"`
	Forbids  []string          `yaml:"forbids,omitempty" json:"-"`
	Modes    []string          `yaml:"modes,omitempty" json:"-"`
}

// Puzzle declares the interactive widget attached to a location.
type Puzzle struct {
	Scene string `yaml:"scene"`
	Key   string `yaml:"key"`
}

// Location is the catalog record for one room.
type Location struct {
	Scene     string   `yaml:"scene"`
	Puzzle    *Puzzle  `yaml:"puzzle,omitempty"`
	Narrative []string `yaml:"narrative"`
	Options   []Option `yaml:"options"`
}

// Catalog is the full parsed content catalog.
type Catalog struct {
	Locations map[domain.LocationID]Location `yaml:"locations"`
}

// Load parses and validates the embedded catalog.
func Load() (*Catalog, error) {
	raw, err := catalogFS.ReadFile("catalog.yaml")
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	for id, location := range catalog.Locations {
		if !domain.KnownLocation(id) {
			return nil, fmt.Errorf("catalog names unknown location %q", id)
		}
		if location.Scene == "" {
			return nil, fmt.Errorf("location %s has no scene key", id)
		}
		if location.Puzzle != nil {
			if _, ok := rules.SolvedFlag(location.Puzzle.Key); !ok {
				return nil, fmt.Errorf("location %s puzzle key %q is unknown", id, location.Puzzle.Key)
			}
		}
		for _, option := range location.Options {
			if option.Action == "" {
				return nil, fmt.Errorf("location %s has an option without an action", id)
			}
			if option.To != "" && !domain.KnownLocation(option.To) {
				return nil, fmt.Errorf("location %s option %s targets unknown location %q", id, option.Action, option.To)
			}
		}
	}
	for _, id := range []domain.LocationID{
		domain.LocationOffice, domain.LocationMaths, domain.LocationDark,
		domain.LocationLibrary, domain.LocationAttic, domain.LocationCredits,
	} {
		if _, ok := catalog.Locations[id]; !ok {
			return nil, fmt.Errorf("catalog is missing location %s", id)
		}
	}

	return &catalog, nil
}

// Options returns the actions offered for the current location of the
// history, filtered by state flags and player mode. After the terminal flag
// is set no further choices are offered; the history itself stays open.
func (c *Catalog) Options(h domain.History, mode domain.PlayerMode) []Option {
	state := projection.CurrentState(h)
	if state.Flag("allDone") {
		return nil
	}
	location := c.Locations[projection.CurrentLocation(h)]

	var offered []Option
	for _, option := range location.Options {
		if len(option.Modes) > 0 && !slices.Contains(option.Modes, mode.String()) {
			continue
		}
		available := true
		for _, flag := range option.Requires {
			if !state.Flag(flag) {
				available = false
				break
			}
		}
		for _, flag := range option.Forbids {
			if state.Flag(flag) {
				available = false
				break
			}
		}
		if available {
			offered = append(offered, option)
		}
	}
	return offered
}

// Narrative returns the narrative variant for the Nth visit (1-based) to a
// location, clamping to the last declared variant.
func (c *Catalog) Narrative(location domain.LocationID, visit int) string {
	variants := c.Locations[location].Narrative
	if len(variants) == 0 {
		return ""
	}
	if visit < 1 {
		visit = 1
	}
	if visit > len(variants) {
		visit = len(variants)
	}
	return variants[visit-1]
}

// SceneKey derives the current scene identifier: the location's puzzle scene
// while its puzzle is unsolved, the plain scene otherwise.
func (c *Catalog) SceneKey(h domain.History) string {
	location := projection.CurrentLocation(h)
	state := projection.CurrentState(h)
	record := c.Locations[location]
	if record.Puzzle != nil {
		flag, ok := rules.SolvedFlag(record.Puzzle.Key)
		if ok && !state.Flag(flag) {
			return record.Puzzle.Scene
		}
	}
	return record.Scene
}

// PuzzleScenes maps tracked puzzle scene keys to their puzzle keys, for the
// telemetry scene watcher.
func (c *Catalog) PuzzleScenes() map[string]string {
	scenes := make(map[string]string)
	for _, location := range c.Locations {
		if location.Puzzle != nil {
			scenes[location.Puzzle.Scene] = location.Puzzle.Key
		}
	}
	return scenes
}

// AreaScenes lists the tracked non-puzzle scene keys, excluding credits.
func (c *Catalog) AreaScenes() []string {
	var scenes []string
	for id, location := range c.Locations {
		if id == domain.LocationCredits {
			continue
		}
		scenes = append(scenes, location.Scene)
	}
	slices.Sort(scenes)
	return scenes
}

// CreditsScene returns the terminal scene key.
func (c *Catalog) CreditsScene() string {
	return c.Locations[domain.LocationCredits].Scene
}
