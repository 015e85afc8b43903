package device

import (
	"testing"

	"github.com/mesaops/identity-api/internal/core/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		ua      string
		class   domain.DeviceClass
		os      string
		browser string
	}{
		{
			name:    "windows chrome",
			ua:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			class:   domain.DeviceDesktop,
			os:      "Windows",
			browser: "Chrome",
		},
		{
			name:    "iphone safari",
			ua:      "Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1",
			class:   domain.DeviceMobile,
			os:      "iOS",
			browser: "Safari",
		},
		{
			name:    "ipad",
			ua:      "Mozilla/5.0 (iPad; CPU OS 16_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.6 Mobile/15E148 Safari/604.1",
			class:   domain.DeviceTablet,
			os:      "iOS",
			browser: "Safari",
		},
		{
			name:    "android phone firefox",
			ua:      "Mozilla/5.0 (Android 14; Mobile; rv:120.0) Gecko/120.0 Firefox/120.0",
			class:   domain.DeviceMobile,
			os:      "Android",
			browser: "Firefox",
		},
		{
			name:    "android tablet",
			ua:      "Mozilla/5.0 (Linux; Android 13; SM-X710) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
			class:   domain.DeviceTablet,
			os:      "Android",
			browser: "Chrome",
		},
		{
			name:    "mac edge",
			ua:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
			class:   domain.DeviceDesktop,
			os:      "macOS",
			browser: "Edge",
		},
		{
			name:    "empty",
			ua:      "",
			class:   domain.DeviceUnknown,
			os:      "Unknown",
			browser: "Unknown",
		},
		{
			name:    "gibberish",
			ua:      "definitely-not-a-browser/1.0",
			class:   domain.DeviceUnknown,
			os:      "Unknown",
			browser: "Unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.ua)
			if got.Class != tt.class {
				t.Fatalf("class = %s, want %s", got.Class, tt.class)
			}
			if got.OS != tt.os {
				t.Fatalf("os = %s, want %s", got.OS, tt.os)
			}
			if got.Browser != tt.browser {
				t.Fatalf("browser = %s, want %s", got.Browser, tt.browser)
			}
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	const ua = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0.0.0 Safari/537.36"
	first := Classify(ua)
	for i := 0; i < 10; i++ {
		if got := Classify(ua); got != first {
			t.Fatalf("classification not deterministic: %+v vs %+v", got, first)
		}
	}
}
