package naming

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// dnslinkPrefix is the TXT record form that binds a domain to a pointer
// name: "dnslink=/cbns/{pointer-name}".
const dnslinkPrefix = "dnslink=/cbns/"

// TXTResolver defines the interface for DNS TXT lookups.
// This allows tests to mock DNS resolution.
type TXTResolver interface {
	// LookupTXT looks up TXT records for the given name.
	LookupTXT(name string) ([]string, error)
}

// defaultTXTResolver wraps the standard net package DNS functions.
type defaultTXTResolver struct{}

func (d *defaultTXTResolver) LookupTXT(name string) ([]string, error) {
	return net.LookupTXT(name)
}

// DefaultTXTResolver is the production TXT resolver using the net package.
var DefaultTXTResolver TXTResolver = &defaultTXTResolver{}

// ResolveDNSLink resolves the _dnslink.{domain} TXT record to a pointer name.
func ResolveDNSLink(domain string) (string, error) {
	return ResolveDNSLinkWithResolver(domain, DefaultTXTResolver)
}

// ResolveDNSLinkWithResolver resolves a domain's dnslink using the provided
// resolver. It looks up _dnslink.{domain} TXT records and extracts the
// pointer name from the first record carrying the "dnslink=/cbns/" prefix.
func ResolveDNSLinkWithResolver(domain string, resolver TXTResolver) (string, error) {
	if domain == "" {
		return "", fmt.Errorf("%w: empty domain", ErrDNSLookupFailed)
	}

	qname := "_dnslink." + domain
	txts, err := resolver.LookupTXT(qname)
	if err != nil {
		return "", fmt.Errorf("%w: TXT lookup for %s: %w", ErrDNSLookupFailed, qname, err)
	}

	var pointerName string
	for _, txt := range txts {
		txt = strings.TrimSpace(txt)
		if strings.HasPrefix(txt, dnslinkPrefix) {
			pointerName = strings.TrimSpace(strings.TrimPrefix(txt, dnslinkPrefix))
			break
		}
	}
	if pointerName == "" {
		return "", fmt.Errorf("%w: no %s TXT record for %s", ErrNoDNSLinkRecord, dnslinkPrefix, qname)
	}

	if err := ValidatePointerName(pointerName); err != nil {
		return "", err
	}
	return pointerName, nil
}

const (
	// defaultUpstream is the default recursive resolver for DNSSEC queries.
	defaultUpstream = "8.8.8.8:53"

	// dnssecTimeout is the timeout for DNSSEC queries.
	dnssecTimeout = 10 * time.Second

	// edns0BufSize is the EDNS0 UDP buffer size.
	edns0BufSize = 4096
)

// DNSSECResolver implements TXTResolver with DNSSEC validation.
// It relies on the upstream recursive resolver to perform DNSSEC validation
// and checks the AD (Authenticated Data) flag in responses.
type DNSSECResolver struct {
	// Upstream is the recursive resolver address (e.g., "8.8.8.8:53").
	Upstream string
}

// Compile-time interface check.
var _ TXTResolver = (*DNSSECResolver)(nil)

// NewDNSSECResolver creates a new DNSSECResolver.
// If upstream is empty, it defaults to "8.8.8.8:53".
func NewDNSSECResolver(upstream string) *DNSSECResolver {
	if upstream == "" {
		upstream = defaultUpstream
	}
	return &DNSSECResolver{Upstream: upstream}
}

// LookupTXT looks up TXT records with DNSSEC validation.
func (r *DNSSECResolver) LookupTXT(name string) ([]string, error) {
	resp, err := r.queryWithDNSSEC(name, dns.TypeTXT)
	if err != nil {
		return nil, err
	}

	var txts []string
	for _, rr := range resp.Answer {
		if txt, ok := rr.(*dns.TXT); ok {
			// TXT records may be split into multiple strings; join them.
			txts = append(txts, strings.Join(txt.Txt, ""))
		}
	}

	if len(txts) == 0 {
		return nil, fmt.Errorf("%w: no TXT records for %s", ErrDNSLookupFailed, name)
	}

	return txts, nil
}

// queryWithDNSSEC sends a DNS query with the DNSSEC OK flag set and validates
// that the response has the AD (Authenticated Data) flag.
func (r *DNSSECResolver) queryWithDNSSEC(name string, qtype uint16) (*dns.Msg, error) {
	fqdn := dns.Fqdn(name)

	msg := new(dns.Msg)
	msg.SetQuestion(fqdn, qtype)
	msg.RecursionDesired = true
	msg.SetEdns0(edns0BufSize, true) // DO (DNSSEC OK) flag

	client := &dns.Client{Timeout: dnssecTimeout}
	resp, _, err := client.Exchange(msg, r.Upstream)
	if err != nil {
		return nil, fmt.Errorf("%w: query %s %s: %w",
			ErrDNSLookupFailed, name, dns.TypeToString[qtype], err)
	}

	// Allow RcodeSuccess and RcodeNameError (NXDOMAIN).
	if resp.Rcode != dns.RcodeSuccess && resp.Rcode != dns.RcodeNameError {
		return nil, fmt.Errorf("%w: query %s %s: rcode %s",
			ErrDNSLookupFailed, name, dns.TypeToString[qtype],
			dns.RcodeToString[resp.Rcode])
	}

	// Require the AD flag. The recursive resolver validated DNSSEC.
	if !resp.AuthenticatedData {
		return nil, fmt.Errorf("%w: AD flag not set for %s %s",
			ErrDNSSECValidationFailed, name, dns.TypeToString[qtype])
	}

	return resp, nil
}
