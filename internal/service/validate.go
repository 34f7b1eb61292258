package service

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

const (
	maxNameLen  = 100
	maxNotesLen = 2000

	// ids are int4 columns in postgres.
	maxID = math.MaxInt32
)

func cleanName(field, raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", invalid(field, "must not be empty")
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return "", invalid(field, fmt.Sprintf("must be at most %d characters", maxNameLen))
	}
	return name, nil
}

func checkID(field string, id int) error {
	if id <= 0 || id > maxID {
		return invalid(field, idRangeMessage)
	}
	return nil
}

var idRangeMessage = fmt.Sprintf("must be an integer between 1 and %d", maxID)

func cleanNotes(raw string) (string, error) {
	notes := strings.TrimSpace(raw)
	if utf8.RuneCountInString(notes) > maxNotesLen {
		return "", invalid("notes", fmt.Sprintf("must be at most %d characters", maxNotesLen))
	}
	return notes, nil
}
