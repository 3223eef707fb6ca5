package notion

import (
	"errors"
	"regexp"

	"github.com/google/uuid"
)

// ErrInvalidID indicates a value that does not contain a Notion id.
var ErrInvalidID = errors.New("notion: invalid id or url")

var hexIDPattern = regexp.MustCompile(`(?i)[0-9a-f]{32}`)

// NormalizeID accepts a dashed UUID, 32 hex characters or a Notion URL that
// ends in one, and returns the dashed lowercase form.
func NormalizeID(raw string) (string, error) {
	if id, err := uuid.Parse(raw); err == nil {
		return id.String(), nil
	}
	match := hexIDPattern.FindString(raw)
	if match == "" {
		return "", ErrInvalidID
	}
	id, err := uuid.Parse(match)
	if err != nil {
		return "", ErrInvalidID
	}
	return id.String(), nil
}
