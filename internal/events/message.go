// Package events carries attention updates from the pipeline to stream
// subscribers, locally or across instances through redis.
package events

import (
	"context"
	"encoding/json"
)

const EventAttention = "attention"

type Message struct {
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// AttentionUpdate is published once per classified frame.
type AttentionUpdate struct {
	UserID              string  `json:"userId"`
	AttentionState      string  `json:"attentionState"`
	AttentionCategory   string  `json:"attentionCategory"`
	AttentionPercentage int     `json:"attentionPercentage"`
	Confidence          float64 `json:"confidence"`
	StateSince          int64   `json:"stateSince"`
	Timestamp           int64   `json:"timestamp"`
}

func UserChannel(userID string) string { return "user:" + userID }

func NewAttentionMessage(u AttentionUpdate) (Message, error) {
	raw, err := json.Marshal(u)
	if err != nil {
		return Message{}, err
	}
	return Message{Channel: UserChannel(u.UserID), Event: EventAttention, Data: raw}, nil
}

type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Bus publishes messages and delivers everything published, by any
// instance, to onMsg.
type Bus interface {
	Publisher
	StartForwarder(ctx context.Context, onMsg func(Message)) error
	Close() error
}
