package repository

import (
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned when the referenced row does not exist.
var ErrNotFound = errors.New("record not found")

// ErrEmailTaken is returned when an insert collides with an existing email,
// regardless of that account's active or deleted flags.
var ErrEmailTaken = errors.New("email already registered")

const uniqueViolation = "23505"

func translate(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// validID reports whether id can be bound to a uuid column; malformed ids are
// treated as missing rows instead of surfacing a driver error.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func validIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup || !validID(id) {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
