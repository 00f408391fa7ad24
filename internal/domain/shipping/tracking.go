package shipping

import (
	"fmt"
	"net/url"
	"strings"
)

var trackingURLTemplates = map[string]string{
	"ups":         "https://www.ups.com/track?tracknum=%s",
	"fedex":       "https://www.fedex.com/fedextrack/?trknbr=%s",
	"usps":        "https://tools.usps.com/go/TrackConfirmAction?tLabels=%s",
	"stamps_com":  "https://tools.usps.com/go/TrackConfirmAction?tLabels=%s",
	"dhl_express": "https://www.dhl.com/us-en/home/tracking.html?tracking-id=%s",
	"ontrac":      "https://www.ontrac.com/tracking/?number=%s",
}

// TrackingURL builds the public tracking page for a carrier code, or "" for
// carriers without a known page.
func TrackingURL(carrierCode, trackingNumber string) string {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return ""
	}
	tmpl, ok := trackingURLTemplates[strings.ToLower(strings.TrimSpace(carrierCode))]
	if !ok {
		return ""
	}
	return fmt.Sprintf(tmpl, url.QueryEscape(trackingNumber))
}
