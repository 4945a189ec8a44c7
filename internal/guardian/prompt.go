package guardian

import (
	"fmt"
	"strings"
)

const noAllowedSites = "None specified"

const imagePrompt = `You are a strict focus proctor watching a user's screen during a work session.

The user's stated mission: %s
Sites the user is allowed to use: %s

Look at the screenshot. List every website or web app that is visible: browser tabs,
the address bar, window titles. Use bare domains such as "youtube.com" or "github.com".
Any visible site that is not on the allowed list, or any entertainment or social media,
means the user is distracted.

Reply with JSON only, no prose:
{"safe": true|false, "verdict": "PRODUCTIVE"|"DISTRACTED", "message": "<one short sentence to the user>",
 "score": <0-100 focus score>, "detectedSites": ["..."], "blockedSites": ["..."]}`

const textPrompt = `You are a focus coach. Decide whether the following activity fits the user's work session.

Activity: %s
Sites the user is allowed to use: %s

Reply with JSON only, no prose:
{"safe": true|false, "verdict": "PRODUCTIVE"|"DISTRACTED", "message": "<one short sentence to the user>",
 "score": <0-100 focus score>, "detectedSites": ["..."], "blockedSites": ["..."]}`

// allowedLine — список сайтов для промпта.
func allowedLine(allowed []string) string {
	if len(allowed) == 0 {
		return noAllowedSites
	}
	return strings.Join(allowed, ", ")
}

func buildPrompt(content string, allowed []string, withImage bool) string {
	if withImage {
		return fmt.Sprintf(imagePrompt, content, allowedLine(allowed))
	}
	return fmt.Sprintf(textPrompt, content, allowedLine(allowed))
}
