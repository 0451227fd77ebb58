// Package phone normalises recipient numbers for gateways.
//
// A Number is a national number plus an optional international dialing (IDD)
// code. Numbers written in international form ("+86…" or "0086…") are split
// with github.com/nyaruka/phonenumbers; anything else is kept verbatim.
package phone

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const (
	// DefaultCountryCode is the calling code treated as domestic.
	DefaultCountryCode = 86
	// DefaultRegion is used to parse "00"-prefixed and bare numbers.
	DefaultRegion = "CN"
)

// Number is an immutable recipient number.
type Number struct {
	number  string
	iddCode int
	valid   bool
}

// New creates a Number. An explicit IDD code is stored as given with no
// further inference; otherwise "+…" and "00…" numbers are parsed, and any
// other input is kept raw without an IDD code.
func New(number string, iddCode ...int) *Number {
	raw := strings.TrimSpace(number)
	n := &Number{number: raw}

	if len(iddCode) > 0 && iddCode[0] > 0 {
		n.iddCode = iddCode[0]
		return n
	}

	switch {
	case strings.HasPrefix(raw, "+"):
		n.parseInternational("ZZ")
	case strings.HasPrefix(raw, "00"):
		n.parseInternational(DefaultRegion)
	default:
		// Validation is best effort only; the raw number is kept either way.
		if parsed, err := phonenumbers.Parse(raw, DefaultRegion); err == nil {
			n.valid = phonenumbers.IsValidNumber(parsed)
		}
	}
	return n
}

// Parse creates a Number from a string IDD code such as "86", "+86" or "0086".
// An empty or unparsable code is treated as absent.
func Parse(number, iddCode string) *Number {
	code := strings.TrimSpace(iddCode)
	code = strings.TrimPrefix(code, "+")
	code = strings.TrimPrefix(code, "00")
	idd, _ := strconv.Atoi(code)
	return New(number, idd)
}

// FromInt creates a Number from an integer national number.
func FromInt(number int64, iddCode ...int) *Number {
	return New(strconv.FormatInt(number, 10), iddCode...)
}

func (n *Number) parseInternational(region string) {
	parsed, err := phonenumbers.Parse(n.number, region)
	if err != nil || parsed.GetCountryCode() == 0 {
		return
	}
	n.iddCode = int(parsed.GetCountryCode())
	n.number = phonenumbers.GetNationalSignificantNumber(parsed)
	n.valid = phonenumbers.IsValidNumber(parsed)
}

// Number returns the national significant number, or the raw input.
func (n *Number) Number() string {
	return n.number
}

// IDDCode returns the country calling code, or 0 when absent.
func (n *Number) IDDCode() int {
	return n.iddCode
}

// HasIDDCode reports whether a country calling code is known.
func (n *Number) HasIDDCode() bool {
	return n.iddCode > 0
}

// PrefixedIDDCode returns prefix followed by the IDD code, or "" when absent.
func (n *Number) PrefixedIDDCode(prefix string) string {
	if !n.HasIDDCode() {
		return ""
	}
	return prefix + strconv.Itoa(n.iddCode)
}

// UniversalNumber returns "+<IDD><number>", or the bare number without an IDD code.
func (n *Number) UniversalNumber() string {
	return n.PrefixedIDDCode("+") + n.number
}

// ZeroPrefixedNumber returns "00<IDD><number>", or the bare number without an IDD code.
func (n *Number) ZeroPrefixedNumber() string {
	return n.PrefixedIDDCode("00") + n.number
}

// InDomesticRegion reports whether the IDD code is absent or the default country code.
func (n *Number) InDomesticRegion() bool {
	return !n.HasIDDCode() || n.iddCode == DefaultCountryCode
}

// IsValid reports whether the number passed phonenumbers validation.
func (n *Number) IsValid() bool {
	return n.valid
}

// RegionCode returns the ISO region for the IDD code, or "" when absent.
func (n *Number) RegionCode() string {
	if !n.HasIDDCode() {
		return ""
	}
	return phonenumbers.GetRegionCodeForCountryCode(n.iddCode)
}

// String returns the universal number.
func (n *Number) String() string {
	return n.UniversalNumber()
}

// MarshalJSON renders the universal number as a JSON string.
func (n *Number) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.UniversalNumber())
}
