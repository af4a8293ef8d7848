package merge

import "fmt"

// Strategy selects how a matched remote row and local card state are
// reconciled.
type Strategy string

const (
	// StrategyNewerWins keeps whichever side has the strictly newer
	// timestamp, field-for-field rules aside. This is the default for
	// every sync after the first.
	StrategyNewerWins Strategy = "newer-wins"

	// StrategyUseRemote takes the remote row unconditionally, keeping
	// only local notes. Offered during the first-connection handshake
	// when the user wants the sheet to be the source of truth.
	StrategyUseRemote Strategy = "use-remote"
)

// DefaultStrategy is what routine syncs use.
const DefaultStrategy = StrategyNewerWins

// IsValid reports whether s is a known strategy.
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyNewerWins, StrategyUseRemote:
		return true
	}
	return false
}

// Description returns a one-line human description for prompts and help
// text.
func (s Strategy) Description() string {
	switch s {
	case StrategyNewerWins:
		return "keep whichever side changed most recently (notes always kept)"
	case StrategyUseRemote:
		return "take everything from the sheet, keeping only local notes"
	default:
		return "unknown strategy"
	}
}

// ParseStrategy converts user input to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyNewerWins:
		return StrategyNewerWins, nil
	case StrategyUseRemote:
		return StrategyUseRemote, nil
	}
	return "", fmt.Errorf("unknown strategy %q (want %s or %s)", s, StrategyNewerWins, StrategyUseRemote)
}
