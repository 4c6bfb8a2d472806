package policy

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"github.com/miekg/dns"
	"golang.org/x/net/idna"
)

var (
	// ErrEmptyTarget indicates the control header carried no value.
	ErrEmptyTarget = errors.New("target domain is empty")

	// ErrIPLiteral indicates the control header carried an address instead of a hostname.
	ErrIPLiteral = errors.New("target domain is an IP literal")

	// ErrInvalidHostname indicates the control header value is not a legal DNS hostname.
	ErrInvalidHostname = errors.New("target domain is not a valid DNS hostname")
)

// Directive is the validated value of a control header.
type Directive struct {
	Raw    string // Value as found in the header.
	Domain string // Trimmed, ASCII form of the hostname; empty unless Valid.
	Valid  bool
	Reason error // Why the value was rejected; nil when Valid.
}

// ValidateTarget checks that raw, once trimmed, is a syntactically legal DNS hostname.  A single
// trailing root dot is dropped.  IP literals, names with empty labels and names whose top-level
// label is all digits are rejected.  Internationalized names are accepted and converted to their
// A-label form.
func ValidateTarget(raw string) Directive {
	d := Directive{Raw: raw}
	host := strings.TrimSpace(raw)
	if host == "" {
		d.Reason = ErrEmptyTarget
		return d
	}
	if isIPLiteral(host) {
		d.Reason = ErrIPLiteral
		return d
	}
	ascii, err := idna.Lookup.ToASCII(strings.TrimSuffix(host, "."))
	if err != nil {
		d.Reason = fmt.Errorf("%w: %v", ErrInvalidHostname, err)
		return d
	}
	labels := strings.Split(ascii, ".")
	for _, l := range labels {
		if l == "" {
			d.Reason = fmt.Errorf("%w: empty label", ErrInvalidHostname)
			return d
		}
	}
	if isNumeric(labels[len(labels)-1]) {
		d.Reason = fmt.Errorf("%w: all-numeric top-level label", ErrInvalidHostname)
		return d
	}
	if !ValidateDomainPart(ascii) || strings.Contains(ascii, "_") {
		d.Reason = ErrInvalidHostname
		return d
	}
	if _, ok := dns.IsDomainName(ascii); !ok {
		d.Reason = ErrInvalidHostname
		return d
	}
	d.Domain = ascii
	d.Valid = true
	return d
}

func isIPLiteral(host string) bool {
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	host = strings.TrimPrefix(strings.ToLower(host), "ipv6:")
	_, err := netip.ParseAddr(host)
	return err == nil
}

func isNumeric(label string) bool {
	for _, c := range label {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
