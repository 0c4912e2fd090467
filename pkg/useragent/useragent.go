package useragent

import (
	"strings"

	"github.com/ua-parser/uap-go/uaparser"
)

// Classifier derives a coarse device type from a User-Agent string. It is
// used for request logging on the public share and track endpoints.
type Classifier struct {
	parser *uaparser.Parser
}

// NewClassifier builds a classifier from the uap-core regex set bundled
// with the library.
func NewClassifier() *Classifier {
	return &Classifier{parser: uaparser.NewFromSaved()}
}

// DeviceType classifies a User-Agent as bot, mobile, tablet, desktop or
// unknown.
func (c *Classifier) DeviceType(userAgent string) string {
	if userAgent == "" {
		return "unknown"
	}

	client := c.parser.Parse(userAgent)
	family := strings.ToLower(client.Device.Family)
	osFamily := strings.ToLower(client.Os.Family)

	switch {
	case strings.Contains(family, "spider") || strings.Contains(family, "bot"):
		return "bot"
	case strings.Contains(family, "ipad") || strings.Contains(family, "tablet") || strings.Contains(family, "kindle"):
		return "tablet"
	case strings.Contains(family, "iphone") || strings.Contains(osFamily, "android") || strings.Contains(osFamily, "ios") || strings.Contains(strings.ToLower(userAgent), "mobile"):
		return "mobile"
	case family == "other" || family == "":
		return "desktop"
	default:
		return "desktop"
	}
}
