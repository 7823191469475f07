package domain

import (
	"fmt"
	"time"
)

// MessageType represents the kind of chat message
type MessageType string

const (
	TypeText      MessageType = "text"
	TypeVoice     MessageType = "voice"
	TypeAudio     MessageType = "audio"
	TypeVideoNote MessageType = "video_note"
	TypeOther     MessageType = "other"
)

// MessageRecord represents one collected chat message
type MessageRecord struct {
	// ID is unique within a chat and strictly increasing by arrival order.
	// It is the resume key.
	ID            int64       `json:"id"`
	SenderID      int64       `json:"sender_id"` // 0 when the sender is unknown (service messages)
	SenderDisplay string      `json:"sender_display"`
	Timestamp     time.Time   `json:"timestamp"`
	Type          MessageType `json:"type"`
	Text          string      `json:"text,omitempty"`
	MediaRef      string      `json:"media_ref,omitempty"` // opaque handle for the media fetcher
}

// IsMedia reports whether the message carries downloadable audio media
func (t MessageType) IsMedia() bool {
	return t == TypeVoice || t == TypeAudio || t == TypeVideoNote
}

// ValidateMessageType checks if a message type is valid
func ValidateMessageType(t MessageType) bool {
	switch t {
	case TypeText, TypeVoice, TypeAudio, TypeVideoNote, TypeOther:
		return true
	}
	return false
}

// ParseMessageTypes converts type names into an allowed-type set
func ParseMessageTypes(values []string) (map[MessageType]struct{}, error) {
	types := make(map[MessageType]struct{}, len(values))
	for _, value := range values {
		t := MessageType(value)
		if !ValidateMessageType(t) || t == TypeOther {
			return nil, fmt.Errorf("%w: unknown message type %q", ErrConfiguration, value)
		}
		types[t] = struct{}{}
	}
	return types, nil
}
