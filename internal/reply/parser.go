package reply

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/anime-shed/reply-assistant-go/internal/errors"
)

// MaxReplies is the number of replies the model is asked for.
const MaxReplies = 3

const parseFailureMessage = "The AI response could not be understood. Please try again."

type modelResponse struct {
	Context      string        `json:"context"`
	LastMessage  string        `json:"lastMessage"`
	Relationship string        `json:"relationship"`
	Mood         string        `json:"mood"`
	Replies      *[]modelReply `json:"replies"`
}

type modelReply struct {
	ID        flexibleString `json:"id"`
	Text      string         `json:"text"`
	Reasoning string         `json:"reasoning"`
	Tone      string         `json:"tone"`
}

// flexibleString accepts "1", 1 and null.
type flexibleString string

func (f *flexibleString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*f = flexibleString(n.String())
	return nil
}

// ParseResponse turns the model's raw completion into an AnalysisResult.
// Prose around the JSON object is ignored. The result gets a fresh ID and
// createdAt; callers set the requested tone.
func ParseResponse(text string, createdAt time.Time) (*AnalysisResult, error) {
	span, ok := extractJSONObject(text)
	if !ok {
		return nil, apperrors.NewParseError(parseFailureMessage, fmt.Errorf("no JSON object in response: %.200q", text))
	}

	var resp modelResponse
	if err := json.Unmarshal([]byte(span), &resp); err != nil {
		return nil, apperrors.NewParseError(parseFailureMessage, err)
	}
	if strings.TrimSpace(resp.Context) == "" {
		return nil, apperrors.NewParseError(parseFailureMessage, fmt.Errorf("missing context"))
	}
	if resp.Replies == nil {
		return nil, apperrors.NewParseError(parseFailureMessage, fmt.Errorf("missing replies"))
	}

	replies := normalizeReplies(*resp.Replies)
	if len(replies) == 0 {
		return nil, apperrors.NewParseError("The AI did not suggest any replies. Please try again.", fmt.Errorf("zero usable replies"))
	}

	return &AnalysisResult{
		ID:           uuid.NewString(),
		Context:      strings.TrimSpace(resp.Context),
		LastMessage:  strings.TrimSpace(resp.LastMessage),
		Relationship: strings.TrimSpace(resp.Relationship),
		Mood:         strings.TrimSpace(resp.Mood),
		Replies:      replies,
		CreatedAt:    createdAt,
	}, nil
}

// normalizeReplies drops entries without text, keeps at most MaxReplies,
// fills missing ids by position and defaults missing tones to casual.
func normalizeReplies(raw []modelReply) []GeneratedReply {
	replies := make([]GeneratedReply, 0, MaxReplies)
	seen := make(map[string]bool, MaxReplies)

	for _, r := range raw {
		if len(replies) == MaxReplies {
			break
		}
		text := strings.TrimSpace(r.Text)
		if text == "" {
			continue
		}

		position := len(replies) + 1
		id := strings.TrimSpace(string(r.ID))
		if id == "" || seen[id] {
			id = strconv.Itoa(position)
		}
		if seen[id] {
			id = fmt.Sprintf("reply-%d", position)
		}
		seen[id] = true

		tone, err := ParseTone(r.Tone)
		if err != nil {
			tone = ToneCasual
		}

		replies = append(replies, GeneratedReply{
			ID:        id,
			Text:      text,
			Tone:      tone,
			Reasoning: strings.TrimSpace(r.Reasoning),
		})
	}
	return replies
}

// extractJSONObject returns the first balanced {...} span in text that is
// valid JSON. Braces inside string literals are ignored, and a span that
// fails to parse (prose like "{smile}") is skipped in favour of the next one.
func extractJSONObject(text string) (string, bool) {
	for start := strings.IndexByte(text, '{'); start >= 0; {
		if end, ok := matchBrace(text, start); ok {
			candidate := text[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, true
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// matchBrace finds the index of the brace closing the one at start.
func matchBrace(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
