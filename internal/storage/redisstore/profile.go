package redisstore

import (
	"context"
	"fmt"

	"github.com/avelose/scraplink/internal/core"
	"github.com/avelose/scraplink/internal/domain"
	"github.com/redis/go-redis/v9"
)

const profilePrefix = "profile:"

// ProfileStore keeps profiles as redis hashes keyed by user id.
type ProfileStore struct {
	rdb *redis.Client
}

func NewProfileStore(rdb *redis.Client) *ProfileStore {
	return &ProfileStore{rdb: rdb}
}

func (s *ProfileStore) GetProfile(ctx context.Context, id domain.UserID) (*domain.Profile, error) {
	fields, err := s.rdb.HGetAll(ctx, profilePrefix+string(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get profile %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, core.ErrProfileNotFound
	}
	return &domain.Profile{
		ID:           id,
		Username:     fields["username"],
		Bio:          fields["bio"],
		AvatarURL:    fields["avatar_url"],
		ScrapbookRef: fields["scrapbook_ref"],
	}, nil
}

func (s *ProfileStore) PutProfile(ctx context.Context, p *domain.Profile) error {
	if err := p.ID.Validate(); err != nil {
		return err
	}
	err := s.rdb.HSet(ctx, profilePrefix+string(p.ID), map[string]any{
		"username":      p.Username,
		"bio":           p.Bio,
		"avatar_url":    p.AvatarURL,
		"scrapbook_ref": p.ScrapbookRef,
	}).Err()
	if err != nil {
		return fmt.Errorf("put profile %s: %w", p.ID, err)
	}
	return nil
}

func (s *ProfileStore) UpdateBio(ctx context.Context, id domain.UserID, bio string) error {
	key := profilePrefix + string(id)
	exists, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("update bio %s: %w", id, err)
	}
	if exists == 0 {
		return core.ErrProfileNotFound
	}
	if err := s.rdb.HSet(ctx, key, "bio", bio).Err(); err != nil {
		return fmt.Errorf("update bio %s: %w", id, err)
	}
	return nil
}

func (s *ProfileStore) Delete(ctx context.Context, id domain.UserID) error {
	if err := s.rdb.Del(ctx, profilePrefix+string(id)).Err(); err != nil {
		return fmt.Errorf("delete profile %s: %w", id, err)
	}
	return nil
}
