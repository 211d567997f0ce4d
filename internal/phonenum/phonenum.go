// Package phonenum normalizes free-form phone input into a country code
// plus local number. Matching is longest-prefix over a static dialing-code
// table; numbers without a recognized prefix fall back to the default
// region (Thailand, 66) with any leading trunk zero stripped.
package phonenum

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

const DefaultCountryCode = "66"

// Dialing codes the agents actually encounter. Longest prefix wins, so
// "971..." resolves to the UAE before "97" could shadow it.
var countryCodes = []string{
	"1", "7", "20", "27", "30", "31", "32", "33", "34", "39", "41", "43",
	"44", "45", "46", "47", "48", "49", "60", "61", "62", "63", "64", "65",
	"66", "81", "82", "84", "86", "90", "91", "852", "853", "886", "966",
	"971", "972", "974",
}

var nonDigits = regexp.MustCompile(`[^\d+]`)

type Number struct {
	CountryCode string
	Local       string
}

// E164 renders the number without the plus sign, the canonical storage key.
func (n Number) E164() string {
	return n.CountryCode + n.Local
}

func (n Number) String() string {
	return "+" + n.CountryCode + n.Local
}

// Normalize parses raw phone input. Accepted shapes: "+66812345678",
// "0066812345678", "66812345678" and local "0812345678". Returns an error
// when fewer than 7 or more than 15 digits remain after cleaning.
func Normalize(raw string) (Number, error) {
	cleaned := nonDigits.ReplaceAllString(strings.TrimSpace(raw), "")
	hasPlus := strings.HasPrefix(cleaned, "+")
	cleaned = strings.ReplaceAll(strings.TrimPrefix(cleaned, "+"), "+", "")
	if strings.HasPrefix(cleaned, "00") {
		hasPlus = true
		cleaned = strings.TrimPrefix(cleaned, "00")
	}
	if len(cleaned) < 7 || len(cleaned) > 15 {
		return Number{}, fmt.Errorf("phone number must have 7-15 digits, got %d", len(cleaned))
	}

	if strings.HasPrefix(cleaned, "0") && !hasPlus {
		// Local format: trunk zero replaced by the default region.
		return Number{CountryCode: DefaultCountryCode, Local: cleaned[1:]}, nil
	}

	if cc := matchCountryCode(cleaned); cc != "" {
		local := cleaned[len(cc):]
		if len(local) >= 6 {
			return Number{CountryCode: cc, Local: local}, nil
		}
	}
	return Number{CountryCode: DefaultCountryCode, Local: strings.TrimPrefix(cleaned, "0")}, nil
}

func matchCountryCode(digits string) string {
	codes := append([]string(nil), countryCodes...)
	sort.Slice(codes, func(i, j int) bool { return len(codes[i]) > len(codes[j]) })
	for _, cc := range codes {
		if strings.HasPrefix(digits, cc) {
			return cc
		}
	}
	return ""
}

// Valid reports whether raw looks like a dialable number at all, used by
// flows to decide between reprompting and accepting.
func Valid(raw string) bool {
	_, err := Normalize(raw)
	return err == nil
}
