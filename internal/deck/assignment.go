package deck

import "fmt"

// Assignment says which player currently holds a card.
type Assignment string

const (
	// Unassigned means the card is still in the deck.
	Unassigned Assignment = "unassigned"
	// PlayerOne assigns the card to the first player.
	PlayerOne Assignment = "player_one"
	// PlayerTwo assigns the card to the second player.
	PlayerTwo Assignment = "player_two"
	// SharedAssignment splits the card between both players.
	SharedAssignment Assignment = "shared"
)

// Wire codes for assignments. The remote sheet stores assignments as small
// integers, so the mapping must stay stable across releases.
const (
	codeUnassigned = 0
	codePlayerOne  = 1
	codePlayerTwo  = 2
	codeShared     = 3
)

// Code returns the wire code for the assignment. Unknown values encode as
// unassigned so a corrupted state can never invent an assignment.
func (a Assignment) Code() int {
	switch a {
	case PlayerOne:
		return codePlayerOne
	case PlayerTwo:
		return codePlayerTwo
	case SharedAssignment:
		return codeShared
	default:
		return codeUnassigned
	}
}

// IsValid reports whether a is one of the four defined assignments.
func (a Assignment) IsValid() bool {
	switch a {
	case Unassigned, PlayerOne, PlayerTwo, SharedAssignment:
		return true
	}
	return false
}

// AssignmentFromCode decodes a wire code. Decoding is lenient: any code
// outside the defined range maps to Unassigned rather than failing, so one
// bad row in the sheet cannot poison a whole pull.
func AssignmentFromCode(code int) Assignment {
	switch code {
	case codePlayerOne:
		return PlayerOne
	case codePlayerTwo:
		return PlayerTwo
	case codeShared:
		return SharedAssignment
	default:
		return Unassigned
	}
}

// ParseAssignment converts user input to an Assignment. Accepted spellings:
// "one"/"1"/"player-one", "two"/"2"/"player-two", "shared"/"both",
// "none"/"unassigned".
func ParseAssignment(s string) (Assignment, error) {
	switch s {
	case "one", "1", "player-one", "player_one":
		return PlayerOne, nil
	case "two", "2", "player-two", "player_two":
		return PlayerTwo, nil
	case "shared", "both":
		return SharedAssignment, nil
	case "none", "unassigned":
		return Unassigned, nil
	}
	return Unassigned, fmt.Errorf("unknown assignment %q (want one, two, shared, or none)", s)
}

// Label renders the assignment using the configured player names.
func (a Assignment) Label(playerOne, playerTwo string) string {
	switch a {
	case PlayerOne:
		return playerOne
	case PlayerTwo:
		return playerTwo
	case SharedAssignment:
		return "shared"
	default:
		return "-"
	}
}
