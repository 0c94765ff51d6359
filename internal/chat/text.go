package chat

import (
	"fmt"
	"strings"

	"filiale-console/internal/model"
)

const (
	WelcomeMessageID  = "welcome"
	titleEllipsis     = "..."
	defaultAssistant  = "the assistant"
	noBranchPrompt    = "Select a branch to start chatting."
	defaultPrompt     = "Type your message..."
	defaultTitleRunes = 40
)

// ReplyFunc produces the simulated assistant answer.
type ReplyFunc func(userText string, assistant *model.Assistant, branch *model.Branch) string

// CannedReply echoes the request and names the assistant and the branch.
func CannedReply(userText string, assistant *model.Assistant, branch *model.Branch) string {
	name := defaultAssistant
	if assistant != nil {
		name = assistant.Name
	}
	branchName := ""
	if branch != nil {
		branchName = branch.Name
	}
	return fmt.Sprintf(
		"I understand your request about %q. As %s, I am processing the information and will come back with a detailed answer based on %s data.",
		userText, name, branchName,
	)
}

func welcomeText(branch *model.Branch, assistant *model.Assistant) string {
	switch {
	case branch == nil:
		return "Hello! I am the DigitGrow assistant. Please select a branch to get started."
	case assistant != nil:
		return fmt.Sprintf("Hello! I am **%s**, your %s assistant for %s. How can I help you today?",
			assistant.Name, strings.ToLower(assistant.Type), branch.Name)
	default:
		return fmt.Sprintf("Hello! I am the assistant of **%s**. How can I help you today?", branch.Name)
	}
}

// truncateTitle keeps the first max runes and appends an ellipsis when text is longer.
func truncateTitle(text string, max int) string {
	if max <= 0 {
		max = defaultTitleRunes
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + titleEllipsis
}
