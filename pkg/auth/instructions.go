package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowCaptureGuide writes step-by-step instructions for copying a request
// as cURL from the browser
func ShowCaptureGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)
	lines := []string{
		rule,
		"CAPTURING SUNO CREDENTIALS",
		rule,
		"",
		"The crawler authenticates with the same headers your browser sends.",
		"",
		"STEP 1: Open https://suno.com and sign in.",
		"STEP 2: Open Developer Tools (F12, or Cmd+Option+I on Mac) and select",
		"        the Network tab. Reload the page if it is empty.",
		"STEP 3: Filter for 'studio-api' and pick any request, for example",
		"        'feed' or 'me'.",
		"STEP 4: Right-click it and choose Copy > Copy as cURL (bash).",
		"STEP 5: Leave the command on the clipboard, or paste it here and",
		"        finish with an empty line.",
		"",
		"The command must contain these headers:",
		"   authorization: Bearer <token>",
		"   browser-token: <token>",
		"   device-id: <id>",
		"",
		"When the session expires mid-crawl the terminal beeps. Copy a fresh",
		"cURL command the same way and the crawl resumes on its own.",
		"",
		"These tokens grant full access to your account. They are deleted",
		"after a successful run unless configured otherwise.",
		rule,
		"",
	}
	fmt.Fprintln(w, strings.Join(lines, "\n"))
}

// ShowQuickCaptureGuide writes a condensed reminder for repeat captures
func ShowQuickCaptureGuide(w io.Writer) {
	fmt.Fprintln(w, "F12 > Network > any studio-api request > Copy as cURL (bash)")
}
