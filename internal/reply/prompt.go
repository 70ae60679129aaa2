package reply

import (
	"fmt"
	"strings"
)

// FallbackJSON is what the model must return verbatim when it cannot read
// the screenshot. It parses into a valid, degraded AnalysisResult.
const FallbackJSON = `{"context":"Unable to read the conversation clearly","lastMessage":"","relationship":"unknown","mood":"neutral","replies":[{"id":"1","text":"Hey! How's it going?","reasoning":"A safe, open-ended opener"},{"id":"2","text":"Sorry, I missed that. What did you mean?","reasoning":"Asks for clarification"},{"id":"3","text":"Tell me more!","reasoning":"Keeps the conversation going"}]}`

const responseShape = `{
  "context": "one or two sentences summarizing what the conversation is about",
  "lastMessage": "the most recent message from the other person, quoted exactly",
  "relationship": "friend | romantic | professional | family | acquaintance | unknown",
  "mood": "one or two words describing the mood of the conversation",
  "replies": [
    {"id": "1", "text": "first reply", "reasoning": "why this reply fits"},
    {"id": "2", "text": "second reply", "reasoning": "why this reply fits"},
    {"id": "3", "text": "third reply", "reasoning": "why this reply fits"}
  ]
}`

// BuildPrompt returns the full instruction text sent with the screenshot.
// The output depends only on tone.
func BuildPrompt(tone Tone) string {
	style, ok := toneStyles[tone]
	if !ok {
		style = toneStyles[ToneCasual]
	}

	var b strings.Builder
	b.WriteString("You are an expert at reading chat conversations and suggesting what to reply next.\n\n")

	b.WriteString("Analyze the chat screenshot in the attached image.\n\n")
	b.WriteString("How to read the screenshot:\n")
	b.WriteString("- Messages on the RIGHT side are sent by the user. The user is the person asking you for help.\n")
	b.WriteString("- Messages on the LEFT side are sent by the other person in the conversation.\n")
	b.WriteString("- Suggest replies the user could send next, answering the other person's most recent message on the left.\n\n")

	fmt.Fprintf(&b, "Reply tone: %s\n", style.Label)
	fmt.Fprintf(&b, "Style: %s\n", style.Description)
	b.WriteString("Example phrasings in this tone:\n")
	for _, example := range style.Examples {
		fmt.Fprintf(&b, "- %q\n", example)
	}
	b.WriteString("\n")

	b.WriteString("Respond with a single JSON object and nothing else. Do not add markdown, code fences, or any text before or after the JSON object.\n")
	b.WriteString("The JSON object must have exactly this structure:\n")
	b.WriteString(responseShape)
	b.WriteString("\n\n")

	b.WriteString("Rules:\n")
	b.WriteString(`- "replies" must contain exactly 3 objects, each with "id", "text" and "reasoning".` + "\n")
	fmt.Fprintf(&b, "- Every reply must be written in the %s tone described above.\n", style.Label)
	b.WriteString("- The 3 replies must be clearly different from each other.\n")
	b.WriteString("- Keep each reply short enough to send as a single chat message.\n")
	b.WriteString("- Write the replies in the same language the conversation uses.\n\n")

	b.WriteString("If the screenshot is unreadable or does not show a conversation, do not fail. Respond with exactly this JSON instead:\n")
	b.WriteString(FallbackJSON)
	b.WriteString("\n")

	return b.String()
}
