package reply

import (
	"time"

	"github.com/anime-shed/reply-assistant-go/internal/imaging"
)

// AnalysisRequest is one unit of work for the client.
type AnalysisRequest struct {
	Image *imaging.NormalizedImageAsset
	Tone  Tone
}

// GeneratedReply is one suggested message.
type GeneratedReply struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Tone      Tone   `json:"tone"`
	Reasoning string `json:"reasoning,omitempty"`
}

// AnalysisResult is only ever built from a fully parsed model response and
// always holds between one and three replies.
type AnalysisResult struct {
	ID           string           `json:"id"`
	Context      string           `json:"context"`
	LastMessage  string           `json:"lastMessage"`
	Relationship string           `json:"relationship"`
	Mood         string           `json:"mood"`
	Replies      []GeneratedReply `json:"replies"`
	Tone         Tone             `json:"tone"`
	CreatedAt    time.Time        `json:"createdAt"`
}
