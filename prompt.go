package polytlai

import (
	"fmt"
	"strings"
)

// TranslationPrompt wraps the source text in the instruction sent to every
// provider.
func TranslationPrompt(text, sourceLang, targetLang string) string {
	return fmt.Sprintf("Translate the following %s text to %s:\n\n%s",
		PromptLanguage(sourceLang), PromptLanguage(targetLang), text)
}

// AnalysisPrompt builds the judge instruction comparing every successful
// translation of text. Entries are listed in the order given.
func AnalysisPrompt(text, sourceLang, targetLang string, translations []ResultEntry) string {
	source := PromptLanguage(sourceLang)
	target := PromptLanguage(targetLang)

	var b strings.Builder
	fmt.Fprintf(&b, "Original %s Text:\n%q\n\n", source, text)
	fmt.Fprintf(&b, "Here are several translations into %s:\n\n", target)
	for _, t := range translations {
		fmt.Fprintf(&b, "- %s:\n%q\n\n", t.Name, t.Text)
	}

	return fmt.Sprintf(`You are a professional translation reviewer. Your task is to analyze the following %[1]s translations of a %[2]s source text.
1. Briefly state which translation is the best overall, considering accuracy, fluency, and nuance.
2. Provide a point-by-point analysis explaining the strengths and weaknesses of each translation.
3. Conclude with a final recommendation for the user.
Please provide your analysis in %[1]s.

%[3]s`, target, source, b.String())
}
