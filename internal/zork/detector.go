package zork

import "strings"

// newGameTriggers are matched as case-insensitive substrings of the player
// message. Spanish first (the game speaks rioplatense Spanish), English as
// a fallback for players who mix languages.
var newGameTriggers = []string{
	"empezar de nuevo",
	"comenzar de nuevo",
	"empezar otra vez",
	"nueva partida",
	"nuevo juego",
	"reiniciar",
	"new game",
	"start over",
	"start again",
	"restart",
}

// IsNewGameRequest reports whether text asks to discard the current game
// and start fresh.
func IsNewGameRequest(text string) bool {
	t := strings.ToLower(text)
	for _, trigger := range newGameTriggers {
		if strings.Contains(t, trigger) {
			return true
		}
	}
	return false
}
