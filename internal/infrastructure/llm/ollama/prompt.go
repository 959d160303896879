package ollama

import (
	"fmt"
	"strings"
)

const maxPromptContextRunes = 6000

// QuestionContextPrompt is the compact "question: ... context: ..." layout
// seq2seq models were trained on.
func QuestionContextPrompt(question string, contexts []string) string {
	return fmt.Sprintf("question: %s context: %s", question, truncateRunes(strings.Join(contexts, "\n"), maxPromptContextRunes))
}

// InstructionPrompt suits chat-tuned models served by ollama.
func InstructionPrompt(question string, contexts []string) string {
	var b strings.Builder
	for idx, text := range contexts {
		fmt.Fprintf(&b, "[%d] %s\n\n", idx+1, strings.TrimSpace(text))
	}

	return fmt.Sprintf(`Answer the question only from the context below.
Reply in the language of the question with one or two sentences.
If the context is insufficient, say it directly.

Question:
%s

Context:
%s`, question, truncateRunes(b.String(), maxPromptContextRunes))
}

// PromptByName maps a configured style to a formatter; unknown names get the
// instruction layout.
func PromptByName(name string) func(string, []string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "t5", "question_context":
		return QuestionContextPrompt
	default:
		return InstructionPrompt
	}
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
