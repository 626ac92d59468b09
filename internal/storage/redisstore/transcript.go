package redisstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/avelose/scraplink/internal/domain"
	"github.com/redis/go-redis/v9"
)

const transcriptPrefix = "transcript:"

// TranscriptStore keeps one append-only list of chat messages per
// unordered participant pair.
type TranscriptStore struct {
	rdb *redis.Client
}

func NewTranscriptStore(rdb *redis.Client) *TranscriptStore {
	return &TranscriptStore{rdb: rdb}
}

func (s *TranscriptStore) Append(ctx context.Context, msg *domain.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode chat message: %w", err)
	}
	key := transcriptPrefix + domain.PairKey(msg.SenderID, msg.ReceiverID)
	if err := s.rdb.RPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("append transcript %s: %w", key, err)
	}
	return nil
}

func (s *TranscriptStore) QueryByPair(ctx context.Context, a, b domain.UserID) ([]domain.ChatMessage, error) {
	key := transcriptPrefix + domain.PairKey(a, b)
	raw, err := s.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("query transcript %s: %w", key, err)
	}
	out := make([]domain.ChatMessage, 0, len(raw))
	for _, item := range raw {
		var msg domain.ChatMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("decode transcript entry: %w", err)
		}
		out = append(out, msg)
	}
	return out, nil
}
