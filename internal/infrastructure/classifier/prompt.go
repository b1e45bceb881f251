package classifier

import (
	"fmt"
	"strings"

	"github.com/hilthontt/civicreport/internal/domain"
)

const systemPrompt = "You are an assistant that classifies civic issue reports into priority levels: High, Medium, or Low."

const maxPromptDescription = 1500

func userPrompt(description string, category domain.Category) string {
	description = strings.TrimSpace(description)
	if r := []rune(description); len(r) > maxPromptDescription {
		description = string(r[:maxPromptDescription])
	}
	return fmt.Sprintf(
		"Category: %s.\nDescription: %q.\nBased on urgency and impact, return only one word: High, Medium, or Low.",
		category.Label, description,
	)
}
