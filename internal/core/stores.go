package core

import (
	"context"
	"errors"

	"github.com/avelose/scraplink/internal/domain"
)

var ErrProfileNotFound = errors.New("profile not found")

// ProfileStore is the external collaborator holding user records.
// The relay core never calls it; only the HTTP surface does.
type ProfileStore interface {
	GetProfile(ctx context.Context, id domain.UserID) (*domain.Profile, error)
	PutProfile(ctx context.Context, p *domain.Profile) error
	UpdateBio(ctx context.Context, id domain.UserID, bio string) error
	Delete(ctx context.Context, id domain.UserID) error
}

// TranscriptStore is the external append-only chat log, queryable by
// participant pair. Clients append after delivery over their own channel.
type TranscriptStore interface {
	Append(ctx context.Context, msg *domain.ChatMessage) error
	QueryByPair(ctx context.Context, a, b domain.UserID) ([]domain.ChatMessage, error)
}
