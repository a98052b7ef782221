package domain

import "strings"

// TriggerTag switches a turn from Sassy to Cooperative mode.
const TriggerTag = "#play-it-safe"

// MemeKeyword marks a cooperative prompt as a meme request.
const MemeKeyword = "meme"

// Intent is the derived purpose of a chat turn.
type Intent string

const (
	IntentMeme Intent = "meme"
	IntentChat Intent = "chat"
)

// MemeRequest is one chat turn's parsed input. Created per turn, immutable
// once created, discarded after the turn.
type MemeRequest struct {
	Prompt     string
	PlayItSafe bool
	Intent     Intent
}

// NewMemeRequest derives the trigger flag and intent from the raw prompt.
// Both checks are case-insensitive substring matches.
func NewMemeRequest(prompt string) *MemeRequest {
	lower := strings.ToLower(prompt)
	req := &MemeRequest{
		Prompt:     prompt,
		PlayItSafe: strings.Contains(lower, TriggerTag),
		Intent:     IntentChat,
	}
	if strings.Contains(lower, MemeKeyword) {
		req.Intent = IntentMeme
	}
	return req
}
