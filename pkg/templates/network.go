package templates

import (
	"regexp"
	"strings"
)

// Network is a Ghanaian mobile operator.
type Network string

const (
	MTN        Network = "MTN"
	Vodafone   Network = "VODAFONE"
	AirtelTigo Network = "AIRTELTIGO"
	// Universal templates apply to any network without its own entry.
	Universal Network = "UNIVERSAL"
	Unknown   Network = "UNKNOWN"
)

var prefixes = map[Network][]string{
	MTN:        {"024", "054", "025", "059"},
	Vodafone:   {"020", "050"},
	AirtelTigo: {"027", "057"},
}

var (
	ghanaPattern = regexp.MustCompile(`^0(24|54|25|59|20|50|27|57)[0-9]{7}$`)
	separators   = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")
)

// Networks returns the operators with known prefixes.
func Networks() []Network {
	return []Network{MTN, Vodafone, AirtelTigo}
}

// Prefixes returns the dialling prefixes of n.
func Prefixes(n Network) []string {
	return append([]string(nil), prefixes[n]...)
}

// ParseNetwork accepts any casing and the "telecel" alias of Vodafone.
func ParseNetwork(s string) Network {
	switch n := Network(strings.ToUpper(strings.TrimSpace(s))); n {
	case MTN, Vodafone, AirtelTigo, Universal:
		return n
	case "TELECEL":
		return Vodafone
	case "AIRTEL", "TIGO":
		return AirtelTigo
	}
	return Unknown
}

// DisplayName is the operator's consumer brand.
func (n Network) DisplayName() string {
	switch n {
	case MTN:
		return "MTN"
	case Vodafone:
		return "Vodafone/Telecel"
	case AirtelTigo:
		return "AirtelTigo"
	case Universal:
		return "Any network"
	}
	return "Unknown Network"
}

// NormalizePhone strips separators and rewrites +233 and 233 prefixes to the local 0.
func NormalizePhone(phone string) string {
	p := separators.Replace(strings.TrimSpace(phone))
	switch {
	case strings.HasPrefix(p, "+233"):
		p = "0" + p[4:]
	case strings.HasPrefix(p, "233") && len(p) == 12:
		p = "0" + p[3:]
	}
	return p
}

// ValidatePhone reports whether phone is a ten-digit Ghanaian mobile number.
func ValidatePhone(phone string) bool {
	return ghanaPattern.MatchString(NormalizePhone(phone))
}

// DetectNetwork maps a number to its operator by prefix.
func DetectNetwork(phone string) Network {
	p := NormalizePhone(phone)
	if len(p) < 3 {
		return Unknown
	}
	for _, n := range Networks() {
		for _, prefix := range prefixes[n] {
			if strings.HasPrefix(p, prefix) {
				return n
			}
		}
	}
	return Unknown
}
