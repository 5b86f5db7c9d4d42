package llm

import (
	"fmt"
	"strings"
)

// SystemPrompt is the persona. Providers send it as their system
// instruction; it is not part of BuildPrompt's output.
const SystemPrompt = "You are a careful medical information assistant. " +
	"Give accurate, general health information in plain language. " +
	"Do not diagnose or prescribe, and always encourage users to consult a qualified healthcare professional."

// SectionHeaders are the headers models are asked to use, in order.
var SectionHeaders = []string{
	"Overview",
	"Symptoms",
	"Causes",
	"Treatment",
	"Prevention",
	"When to See a Doctor",
}

// BuildPrompt wraps a validated question in formatting instructions.
func BuildPrompt(question string) string {
	var sb strings.Builder
	sb.WriteString("Answer the question below. Organise the answer under these markdown headers, in this order:\n")
	for _, h := range SectionHeaders {
		fmt.Fprintf(&sb, "## %s\n", h)
	}
	sb.WriteString("Use short paragraphs or bullet points under each header. ")
	sb.WriteString("If a section does not apply, say so briefly instead of leaving it out.\n\n")
	fmt.Fprintf(&sb, "Question: %s\n", question)
	return sb.String()
}
