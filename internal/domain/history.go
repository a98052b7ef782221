package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// TurnMode records which state the orchestrator resolved a turn in.
type TurnMode string

const (
	TurnModeSassy TurnMode = "sassy"
	TurnModeMeme  TurnMode = "meme"
	TurnModeChat  TurnMode = "chat"
)

// StringArray is a custom type for storing string arrays as JSON in the
// database.
type StringArray []string

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded string representation of the slice.
//   - error: non-nil if marshaling fails.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan StringArray")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, a)
}

// ChatTurn is one sidebar history entry: append-only bookkeeping, cleared
// only by an explicit user action. The meme bytes themselves are never
// persisted here.
type ChatTurn struct {
	ID        string      `gorm:"type:text;primaryKey" json:"id"`
	Query     string      `gorm:"type:text;not null" json:"query"`
	Mode      TurnMode    `gorm:"type:text;index:idx_chat_turns_mode" json:"mode"`
	Subjects  StringArray `gorm:"type:text" json:"subjects"`
	HadMeme   bool        `json:"had_meme"`
	CreatedAt time.Time   `json:"created_at"`
}

// TableName returns the database table name for ChatTurn.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (ChatTurn) TableName() string {
	return "chat_turns"
}

// Excerpt returns the query truncated for sidebar display.
func (t *ChatTurn) Excerpt(max int) string {
	runes := []rune(t.Query)
	if len(runes) <= max {
		return t.Query
	}
	return string(runes[:max]) + "..."
}
