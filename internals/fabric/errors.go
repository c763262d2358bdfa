package fabric

import "fmt"

// LatestNotFoundError is returned when the meta server advertises no game
// version for the requested channel.
type LatestNotFoundError struct {
	Api     string
	Channel string
}

func (e *LatestNotFoundError) Error() string {
	return fmt.Sprintf("%s: no latest %s game version", e.Api, e.Channel)
}

// GameVersionNotFoundError is returned when the meta server does not
// support the game version.
type GameVersionNotFoundError struct {
	Api         string
	GameVersion string
}

func (e *GameVersionNotFoundError) Error() string {
	return fmt.Sprintf("%s: game version not found: %s", e.Api, e.GameVersion)
}

// LoaderVersionNotFoundError is returned when the loader version does not
// exist for the game version.
type LoaderVersionNotFoundError struct {
	Api           string
	GameVersion   string
	LoaderVersion string
}

func (e *LoaderVersionNotFoundError) Error() string {
	return fmt.Sprintf("%s: loader version not found: %s for %s", e.Api, e.LoaderVersion, e.GameVersion)
}
