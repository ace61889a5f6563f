package service

import (
	"strings"
	"time"

	feedRepo "anoa.com/socialfeed/internal/modules/feed/repository"
	"anoa.com/socialfeed/pkg/apperror"
	"github.com/google/uuid"
)

const cursorSeparator = "_"

// EncodeCursor renders the composite key of the last row on a page.
func EncodeCursor(createdAt time.Time, id uuid.UUID) string {
	return createdAt.UTC().Format(time.RFC3339Nano) + cursorSeparator + id.String()
}

// DecodeCursor accepts "<RFC3339Nano>_<uuid>" or a bare RFC3339 timestamp.
// An empty string means the first page.
func DecodeCursor(raw string) (*feedRepo.Cursor, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	ts, idPart, hasID := strings.Cut(raw, cursorSeparator)

	createdAt, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, apperror.Validation("invalid cursor")
	}

	cursor := &feedRepo.Cursor{CreatedAt: createdAt.UTC()}
	if hasID {
		id, err := uuid.Parse(idPart)
		if err != nil {
			return nil, apperror.Validation("invalid cursor")
		}
		cursor.ID = id
		cursor.HasID = true
	}
	return cursor, nil
}
