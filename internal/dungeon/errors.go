package dungeon

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTheme is returned when an explicitly named theme is not in the current snapshot.
	ErrUnknownTheme = errors.New("unknown theme")

	// ErrNoThemes is returned when no theme was named and none is loaded.
	ErrNoThemes = errors.New("no themes loaded")

	// ErrDungeonExists is returned when preparing a dungeon under a name already in use.
	ErrDungeonExists = errors.New("dungeon already exists")

	// ErrDungeonNotFound is returned for a stored dungeon name the guild does not have.
	ErrDungeonNotFound = errors.New("dungeon not found")
)

// StaleThemeError reports a theme recorded for a guild that the current
// snapshot no longer contains. It is detected when the theme is next used.
type StaleThemeError struct {
	GuildID string
	Theme   string
	Version uint64
}

func (e *StaleThemeError) Error() string {
	return fmt.Sprintf("theme %q selected by guild %s is not in content v%d", e.Theme, e.GuildID, e.Version)
}
