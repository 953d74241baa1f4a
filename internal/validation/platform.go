package validation

import "strings"

type platformRule struct {
	label     string
	fragments []string
}

// Ordered; first match wins.
var platformRules = []platformRule{
	{"YouTube", []string{"youtube.com", "youtu.be"}},
	{"Bilibili", []string{"bilibili.com"}},
	{"TikTok", []string{"tiktok.com"}},
	{"Twitter", []string{"twitter.com", "x.com"}},
	{"Facebook", []string{"facebook.com", "fb.com"}},
	{"Instagram", []string{"instagram.com"}},
}

// DetectPlatform returns a coarse source label for a media URL. The result is
// used only for logging and messages, never for download behavior.
func DetectPlatform(url string) string {
	url = strings.ToLower(url)

	for _, rule := range platformRules {
		for _, fragment := range rule.fragments {
			if strings.Contains(url, fragment) {
				return rule.label
			}
		}
	}
	return "Unknown"
}
