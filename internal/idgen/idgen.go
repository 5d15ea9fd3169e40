// Package idgen provides event identifier generation backed by nanoid.
//
// Locally-created events get identifiers of the form "$<random>:<origin>";
// remote events arrive with identifiers minted by their origin host.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet defines the character set used for the random portion of the ID.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated.
var Length = 18

// NewEventID returns a new globally-unique event identifier scoped to the
// given origin host.
func NewEventID(origin string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return "$" + id + ":" + origin, nil
}
