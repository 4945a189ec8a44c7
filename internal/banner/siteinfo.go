package banner

import "strings"

// SiteInfo — как назвать сайт в баннере.
type SiteInfo struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// Порядок важен: x.com — подстрока netflix.com, поэтому он последний
var knownSites = []struct {
	domain string
	info   SiteInfo
}{
	{"youtube.com", SiteInfo{"YouTube", "📺"}},
	{"facebook.com", SiteInfo{"Facebook", "👥"}},
	{"instagram.com", SiteInfo{"Instagram", "📸"}},
	{"twitter.com", SiteInfo{"Twitter/X", "🐦"}},
	{"reddit.com", SiteInfo{"Reddit", "🔴"}},
	{"tiktok.com", SiteInfo{"TikTok", "🎵"}},
	{"netflix.com", SiteInfo{"Netflix", "🎬"}},
	{"twitch.tv", SiteInfo{"Twitch", "🎮"}},
	{"discord.com", SiteInfo{"Discord", "💬"}},
	{"x.com", SiteInfo{"X", "🐦"}},
}

// LookupSite подбирает имя и иконку; неизвестный сайт показывается как есть.
func LookupSite(host string) SiteInfo {
	host = strings.ToLower(host)
	for _, s := range knownSites {
		if strings.Contains(host, s.domain) {
			return s.info
		}
	}
	return SiteInfo{Name: host, Icon: "🌐"}
}
