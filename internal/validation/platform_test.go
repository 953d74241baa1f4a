package validation

import "testing"

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=abc", "YouTube"},
		{"https://youtu.be/abc", "YouTube"},
		{"HTTPS://WWW.YOUTUBE.COM/watch?v=abc", "YouTube"},
		{"https://www.bilibili.com/video/BV1", "Bilibili"},
		{"https://www.tiktok.com/@user/video/1", "TikTok"},
		{"https://twitter.com/user/status/1", "Twitter"},
		{"https://x.com/user/status/1", "Twitter"},
		{"https://www.facebook.com/watch?v=1", "Facebook"},
		{"https://fb.com/watch?v=1", "Facebook"},
		{"https://www.instagram.com/reel/abc", "Instagram"},
		{"https://example.com/video.mp4", "Unknown"},
		{"", "Unknown"},
	}

	for _, tt := range tests {
		if got := DetectPlatform(tt.url); got != tt.want {
			t.Errorf("DetectPlatform(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
