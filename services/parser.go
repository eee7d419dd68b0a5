package services

import "strings"

const (
	defaultImproveNotes = "Code improved."
	fallbackHint        = "Think about the problem step by step."
	fallbackSolution    = "Solution will be provided upon request."
)

// splitImprovement separates improved code from the change notes that
// follow a "Changes:" marker, or "Explanation:" when there is none. Notes end
// at a repeated marker.
func splitImprovement(text string) (code, notes string) {
	marker := "Explanation:"
	if strings.Contains(text, "Changes:") {
		marker = "Changes:"
	}
	parts := strings.Split(text, marker)
	code = strings.TrimSpace(parts[0])
	notes = defaultImproveNotes
	if len(parts) > 1 {
		notes = strings.TrimSpace(parts[1])
	}
	return code, notes
}

// parseChallenge reads DESCRIPTION:/HINT:/SOLUTION: sections. When no
// description can be found the whole text becomes the description.
func parseChallenge(text string) (description, hint, solution string) {
	if idx := strings.Index(text, "DESCRIPTION:"); idx >= 0 {
		rest := text[idx+len("DESCRIPTION:"):]
		parts := strings.SplitN(rest, "HINT:", 2)
		description = strings.TrimSpace(parts[0])
		if len(parts) > 1 {
			hintParts := strings.SplitN(parts[1], "SOLUTION:", 2)
			hint = strings.TrimSpace(hintParts[0])
			if len(hintParts) > 1 {
				solution = strings.TrimSpace(hintParts[1])
			}
		}
	}
	if description == "" {
		return text, fallbackHint, fallbackSolution
	}
	return description, hint, solution
}

// estimateTokens approximates output tokens by counting words.
func estimateTokens(text string) int {
	return len(strings.Fields(text))
}

// mentionsProblem reports whether an analysis reads like it found something.
func mentionsProblem(analysis string) bool {
	lower := strings.ToLower(analysis)
	return strings.Contains(lower, "error") || strings.Contains(lower, "issue")
}
