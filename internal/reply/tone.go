package reply

import (
	"fmt"
	"strings"

	"github.com/arbovm/levenshtein"
)

// Tone is the stylistic category the generated replies follow.
type Tone string

const (
	ToneFriendly     Tone = "friendly"
	ToneCasual       Tone = "casual"
	ToneFormal       Tone = "formal"
	ToneProfessional Tone = "professional"
	ToneFlirty       Tone = "flirty"
	ToneWitty        Tone = "witty"
)

// maxToneDistance is how many edits ParseTone forgives.
const maxToneDistance = 2

type toneStyle struct {
	Label       string
	Description string
	Examples    []string
}

var toneStyles = map[Tone]toneStyle{
	ToneFriendly: {
		Label:       "Friendly",
		Description: "Warm, kind and supportive. Show genuine interest in the other person and keep the energy positive.",
		Examples: []string{
			"That sounds amazing, I'm really happy for you!",
			"Aw, thanks for thinking of me! How have you been?",
			"I'd love to hear more about it when you have time.",
		},
	},
	ToneCasual: {
		Label:       "Casual",
		Description: "Relaxed and laid-back, the way you would text a friend. Short sentences, everyday words, contractions are fine.",
		Examples: []string{
			"haha yeah same",
			"sounds good, I'm down",
			"no worries, catch you later!",
		},
	},
	ToneFormal: {
		Label:       "Formal",
		Description: "Polite and respectful with complete sentences and correct grammar. No slang, no emoji.",
		Examples: []string{
			"Thank you for letting me know. I appreciate it.",
			"I understand, and I will get back to you shortly.",
			"Please accept my apologies for the delayed response.",
		},
	},
	ToneProfessional: {
		Label:       "Professional",
		Description: "Clear, concise and business-appropriate. Focus on next steps and commitments while staying courteous.",
		Examples: []string{
			"Thanks for the update. I'll review it and follow up by end of day.",
			"Happy to help. Could you share the details so I can take a look?",
			"Noted. Let's schedule a quick call to align on next steps.",
		},
	},
	ToneFlirty: {
		Label:       "Flirty",
		Description: "Playful and charming with light teasing and a hint of romance. Confident but respectful, never crude.",
		Examples: []string{
			"Careful, you're making it hard to stop smiling at my phone 😏",
			"Only if you promise to be this charming in person",
			"Is it just me or do our chats keep getting better?",
		},
	},
	ToneWitty: {
		Label:       "Witty",
		Description: "Clever and humorous. Use wordplay, light sarcasm or an unexpected twist while still answering the message.",
		Examples: []string{
			"I'd agree with you, but then we'd both be wrong",
			"Bold of you to assume I have my life together before noon",
			"Plot twist: I was right all along",
		},
	},
}

// AllTones returns the tones in display order.
func AllTones() []Tone {
	return []Tone{ToneFriendly, ToneCasual, ToneFormal, ToneProfessional, ToneFlirty, ToneWitty}
}

// Valid reports whether t is one of the six tones.
func (t Tone) Valid() bool {
	_, ok := toneStyles[t]
	return ok
}

// Label returns the display name of the tone.
func (t Tone) Label() string {
	return toneStyles[t].Label
}

// Description returns the style guidance for the tone.
func (t Tone) Description() string {
	return toneStyles[t].Description
}

// Examples returns sample phrasings for the tone.
func (t Tone) Examples() []string {
	examples := toneStyles[t].Examples
	out := make([]string, len(examples))
	copy(out, examples)
	return out
}

// ParseTone maps user or model input onto a Tone. Matching is
// case-insensitive and tolerates small misspellings such as "profesional".
func ParseTone(s string) (Tone, error) {
	candidate := strings.ToLower(strings.TrimSpace(s))
	if candidate == "" {
		return "", fmt.Errorf("empty tone")
	}
	if t := Tone(candidate); t.Valid() {
		return t, nil
	}

	best, bestDistance := Tone(""), maxToneDistance+1
	for _, t := range AllTones() {
		if d := levenshtein.Distance(candidate, string(t)); d < bestDistance {
			best, bestDistance = t, d
		}
	}
	if best == "" {
		return "", fmt.Errorf("unknown tone %q", s)
	}
	return best, nil
}
