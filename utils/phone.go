package utils

import (
	"strings"

	"github.com/ttacon/libphonenumber"
)

// NormalizePhone returns raw in E.164 form when libphonenumber recognises it,
// reading numbers without a country prefix as belonging to region. Anything
// it cannot place is returned trimmed but otherwise as given.
func NormalizePhone(raw, region string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	p, err := libphonenumber.Parse(raw, region)
	if err != nil || !libphonenumber.IsValidNumber(p) {
		return raw
	}
	return libphonenumber.Format(p, libphonenumber.E164)
}
