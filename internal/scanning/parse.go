package scanning

import (
	"strings"
)

// noTextMarker is what the LLM sources are asked to answer for blank images.
const noTextMarker = "NO_TEXT"

// transcribePrompt asks a vision model for a plain OCR transcription. The
// extraction package does the field parsing, so the model must not summarize.
const transcribePrompt = `Transcribe all of the text on this receipt exactly as printed.

Rules:
- Output one printed line per line, top to bottom, in reading order
- Keep prices, dates, and totals exactly as shown, including the $ sign and decimals
- Do not summarize, translate, reorder, or add commentary
- Do not wrap the output in markdown
- If the image contains no readable text, reply with exactly: NO_TEXT`

// cleanTranscript strips markdown fences and chatter from an LLM
// transcription and reports whether any receipt text is left.
func cleanTranscript(text string) (string, bool) {
	text = strings.TrimSpace(text)

	// Remove opening and closing markdown code blocks
	if strings.HasPrefix(text, "```") {
		if idx := strings.Index(text, "\n"); idx != -1 {
			text = text[idx+1:]
		} else {
			text = strings.TrimPrefix(text, "```")
		}
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	text = strings.TrimSpace(text)

	if text == "" || strings.EqualFold(text, noTextMarker) {
		return "", false
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	return strings.Join(lines, "\n"), true
}
