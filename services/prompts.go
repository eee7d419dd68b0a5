package services

import "fmt"

func codePrompt(language, task string) string {
	return fmt.Sprintf(`You are a code generation assistant. Generate clean, well-commented %s code for the following task:

Task: %s

Provide only the code without explanations.

Code:
`, language, task)
}

func explainPrompt(code, language string) string {
	return fmt.Sprintf("Explain the following %s code in simple terms. Describe what it does, how it works, and any important details:\n\n```%s\n%s\n```\n\nExplanation:\n",
		language, language, code)
}

func improvePrompt(code, language, focus string) string {
	return fmt.Sprintf("Improve the following %s code focusing on %s.\nProvide the improved code and explain what changes were made:\n\nOriginal Code:\n```%s\n%s\n```\n\nImproved Code:\n",
		language, focus, language, code)
}

func challengePrompt(language, topic, difficulty string) string {
	return fmt.Sprintf(`Create a %s coding challenge in %s focusing on %s.

Provide:
1. Challenge description (what to build)
2. A hint (approach to solve it)
3. A sample solution

Format:
DESCRIPTION: [challenge description]
HINT: [solving approach]
SOLUTION: [code solution]

Generate:
`, difficulty, language, topic)
}

func detectErrorsPrompt(code, language string) string {
	return fmt.Sprintf("Analyze the following %s code for potential errors, bugs, or issues:\n\n```%s\n%s\n```\n\nList any errors or issues found:\n",
		language, language, code)
}

const testPrompt = "Print 'Hello World' in Python:"
