// Package device turns raw user-agent strings into structured device
// descriptors. Classification is pure string matching and never errors;
// anything unrecognisable degrades to the unknown class.
package device

import (
	"strings"

	"github.com/mesaops/identity-api/internal/core/domain"
)

// Classify parses a user-agent string into a device descriptor.
func Classify(userAgent string) domain.DeviceDescriptor {
	ua := strings.ToLower(userAgent)
	return domain.DeviceDescriptor{
		Class:   classifyClass(ua),
		OS:      classifyOS(ua),
		Browser: classifyBrowser(ua),
	}
}

func classifyClass(ua string) domain.DeviceClass {
	switch {
	case ua == "":
		return domain.DeviceUnknown
	case strings.Contains(ua, "ipad") || (strings.Contains(ua, "tablet") && !strings.Contains(ua, "mobile")):
		return domain.DeviceTablet
	case strings.Contains(ua, "android") && !strings.Contains(ua, "mobile"):
		// Android tablets report "Android" without the "Mobile" token.
		return domain.DeviceTablet
	case strings.Contains(ua, "mobile") || strings.Contains(ua, "iphone") || strings.Contains(ua, "android"):
		return domain.DeviceMobile
	case strings.Contains(ua, "windows") || strings.Contains(ua, "macintosh") || strings.Contains(ua, "x11") || strings.Contains(ua, "linux"):
		return domain.DeviceDesktop
	default:
		return domain.DeviceUnknown
	}
}

func classifyOS(ua string) string {
	switch {
	case strings.Contains(ua, "windows nt"):
		return "Windows"
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad"):
		return "iOS"
	case strings.Contains(ua, "mac os x") || strings.Contains(ua, "macintosh"):
		return "macOS"
	case strings.Contains(ua, "android"):
		return "Android"
	case strings.Contains(ua, "cros"):
		return "ChromeOS"
	case strings.Contains(ua, "linux"):
		return "Linux"
	default:
		return "Unknown"
	}
}

// classifyBrowser checks the ambiguous tokens last: almost every browser
// claims to be Mozilla, and Chrome derivatives also claim Safari.
func classifyBrowser(ua string) string {
	switch {
	case strings.Contains(ua, "edg/") || strings.Contains(ua, "edge/"):
		return "Edge"
	case strings.Contains(ua, "opr/") || strings.Contains(ua, "opera"):
		return "Opera"
	case strings.Contains(ua, "firefox/"):
		return "Firefox"
	case strings.Contains(ua, "chrome/") || strings.Contains(ua, "crios/"):
		return "Chrome"
	case strings.Contains(ua, "safari/"):
		return "Safari"
	default:
		return "Unknown"
	}
}
