package chat

import (
	"fmt"
	"strings"
)

const answerPromptSuffix = "\nThe user asked: %s\n\n\nPlease answer the user's question."

const contextFeedbackSuffix = "\n\nIf the user asked \"%s\". How relevant is the above context to the user's question?"

const AnswerFeedbackPrompt = "\nThe user asked: %s\n\nThe model answered: %s\n\n\nHow relevant is the above answer to the user's question?"

// formatContext renders retrieved summaries as a bulleted "Context:" block.
func formatContext(contexts []string) string {
	var sb strings.Builder
	sb.WriteString("Context:\n")
	for _, c := range contexts {
		fmt.Fprintf(&sb, "- %s\n", c)
	}
	return sb.String()
}

func BuildAnswerPrompt(question string, contexts []string) string {
	return formatContext(contexts) + fmt.Sprintf(answerPromptSuffix, question)
}

func BuildContextFeedbackPrompt(question string, contexts []string) string {
	return formatContext(contexts) + fmt.Sprintf(contextFeedbackSuffix, question)
}

func BuildAnswerFeedbackPrompt(question, answer string) string {
	return fmt.Sprintf(AnswerFeedbackPrompt, question, answer)
}
