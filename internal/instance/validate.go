package instance

import "fmt"

const (

	// Length of a full container ID (hex-encoded SHA-256).
	idLength = 64

	// Upper bound on team identifiers.
	maxTeamLength = 64
)

// Checks that id is a full, lowercase hexadecimal container ID.
func ValidateID(id string) error {
	if len(id) != idLength {
		return fmt.Errorf("%w: length %d", ErrInvalidID, len(id))
	}
	for i := 0; i < len(id); i++ {
		if !isLowerHex(id[i]) {
			return fmt.Errorf("%w: unexpected character at %d", ErrInvalidID, i)
		}
	}
	return nil
}

// Checks that team is usable as a label value and a label filter.
//
// Team IDs are restricted to ASCII letters, digits, '-' and '_', which keeps
// "owner=<team>" filters unambiguous.
func ValidateTeam(team string) error {
	if team == "" || len(team) > maxTeamLength {
		return fmt.Errorf("%w: length %d", ErrInvalidTeam, len(team))
	}
	for i := 0; i < len(team); i++ {
		c := team[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return fmt.Errorf("%w: unexpected character at %d", ErrInvalidTeam, i)
		}
	}
	return nil
}

func isLowerHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
}
