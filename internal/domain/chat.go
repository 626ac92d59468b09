package domain

import "time"

// ChatMessage is one entry of the append-only transcript kept per
// participant pair. Transcripts live outside the relay path; the client
// writes them after delivering a message over its own data channel.
type ChatMessage struct {
	ID            string    `json:"id"`
	SenderID      UserID    `json:"senderId"`
	ReceiverID    UserID    `json:"receiverId"`
	Text          string    `json:"text"`
	AttachmentRef string    `json:"attachmentRef,omitempty"`
	SentAt        time.Time `json:"sentAt"`
}

// PairKey returns a canonical key for an unordered participant pair, so
// both sides of a conversation query the same transcript.
func PairKey(a, b UserID) string {
	if b < a {
		a, b = b, a
	}
	return string(a) + ":" + string(b)
}
