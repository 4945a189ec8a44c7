package guardian

import (
	"fmt"
	"slices"
	"strings"

	"github.com/xela07ax/mindtussle/internal/domain"
	"github.com/xela07ax/mindtussle/internal/sitematch"
)

// Сайты, которые блокируются даже при "safe" ответе модели
var distractionKeywords = []string{
	"youtube", "facebook", "twitter", "x.com", "instagram", "tiktok",
	"netflix", "amazon", "reddit", "twitch", "discord",
}

// ignoredSite — наши собственные вкладки и служебные страницы браузера.
func ignoredSite(site string) bool {
	return site == "" ||
		strings.Contains(site, "mindtussle") ||
		strings.Contains(site, "localhost") ||
		site == "chrome"
}

func isDistraction(site string) bool {
	for _, kw := range distractionKeywords {
		if strings.Contains(site, kw) {
			return true
		}
	}
	return false
}

// applyProctor перепроверяет найденные моделью сайты по списку разрешенных.
// Возвращает true, если вердикт модели был перебит.
// Без перебития вердикт модели остается как есть, включая detectedSites.
func applyProctor(v *domain.Verdict, allowed []string) bool {
	detected := sitematch.NormalizeAll(v.DetectedSites)

	var blocked []string

	if len(allowed) > 0 {
		for _, site := range detected {
			if ignoredSite(site) {
				continue
			}
			if !sitematch.AnyFuzzy(site, allowed) {
				blocked = append(blocked, site)
			}
		}
	}

	for _, site := range detected {
		if !isDistraction(site) {
			continue
		}
		if sitematch.AnyContained(site, allowed) || slices.Contains(blocked, site) {
			continue
		}
		blocked = append(blocked, site)
	}

	if len(blocked) == 0 {
		return false
	}

	v.Safe = false
	v.DetectedSites = detected
	v.Verdict = domain.VerdictDistracted
	v.BlockedSites = blocked
	v.Message = fmt.Sprintf("Proctor Alert: Unauthorized site detected (%s). Close it immediately.", blocked[0])
	return true
}
