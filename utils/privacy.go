package utils

import "strings"

// MaskIP hides the first two octets of an IPv4 address
func MaskIP(ip string) string {
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return "xxx.xxx.xxx.xxx"
	}
	return "xxx.xxx." + parts[2] + "." + parts[3]
}

// MaskEmail keeps the first and last character of the local part,
// e.g. john.doe@example.com -> j******e@example.com
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return email
	}
	runes := []rune(local)
	if len(runes) <= 2 {
		return string(runes[0]) + "*@" + domain
	}
	return string(runes[0]) + strings.Repeat("*", len(runes)-2) + string(runes[len(runes)-1]) + "@" + domain
}

// UserAgentInfo is the coarse device and browser of a client
type UserAgentInfo struct {
	Device  string `json:"device"`
	Browser string `json:"browser"`
}

// ParseUserAgent extracts device and browser from a User-Agent header
func ParseUserAgent(userAgent string) UserAgentInfo {
	if userAgent == "" {
		return UserAgentInfo{Device: "Unknown", Browser: "Unknown"}
	}
	ua := strings.ToLower(userAgent)

	info := UserAgentInfo{Device: "Desktop", Browser: "Unknown"}
	switch {
	case strings.Contains(ua, "mobile"), strings.Contains(ua, "android"), strings.Contains(ua, "iphone"):
		info.Device = "Mobile"
	case strings.Contains(ua, "tablet"), strings.Contains(ua, "ipad"):
		info.Device = "Tablet"
	}

	switch {
	case strings.Contains(ua, "chrome") && !strings.Contains(ua, "edge"):
		info.Browser = "Chrome"
	case strings.Contains(ua, "safari") && !strings.Contains(ua, "chrome"):
		info.Browser = "Safari"
	case strings.Contains(ua, "firefox"):
		info.Browser = "Firefox"
	case strings.Contains(ua, "edge"), strings.Contains(ua, "edg"):
		info.Browser = "Edge"
	case strings.Contains(ua, "opera"), strings.Contains(ua, "opr"):
		info.Browser = "Opera"
	}
	return info
}
