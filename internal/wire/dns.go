package wire

import (
	"fmt"
	"net"

	"github.com/miekg/dns"
)

// Limits preserved from the original parser for behavioral parity
// (Design Notes): a fixed cap on the number of records returned and a
// truncation length for any textual record value.
const (
	MaxAddresses = 30
	MaxStrings   = 30
	MaxStringLen = 255
)

// QType enumerates the record types the resolver façade issues.
type QType uint16

const (
	QTypeA     QType = QType(dns.TypeA)
	QTypeNS    QType = QType(dns.TypeNS)
	QTypeCNAME QType = QType(dns.TypeCNAME)
	QTypeSOA   QType = QType(dns.TypeSOA)
	QTypePTR   QType = QType(dns.TypePTR)
	QTypeHINFO QType = QType(dns.TypeHINFO)
	QTypeMX    QType = QType(dns.TypeMX)
	QTypeTXT   QType = QType(dns.TypeTXT)
)

// RcodeKind is the human-readable error kind an RCODE maps to.
type RcodeKind string

const (
	RcodeNoError           RcodeKind = ""
	RcodeFormatError       RcodeKind = "format error"
	RcodeServerFailure     RcodeKind = "server failure"
	RcodeNonExistentDomain RcodeKind = "non-existent domain"
	RcodeNotImplemented    RcodeKind = "not implemented"
	RcodeQueryRefused      RcodeKind = "query refused"
	RcodeUnknown           RcodeKind = "unknown error"
)

// RcodeToKind maps a DNS header RCODE to its human-readable kind.
func RcodeToKind(rcode int) RcodeKind {
	switch rcode {
	case dns.RcodeSuccess:
		return RcodeNoError
	case dns.RcodeFormatError:
		return RcodeFormatError
	case dns.RcodeServerFailure:
		return RcodeServerFailure
	case dns.RcodeNameError:
		return RcodeNonExistentDomain
	case dns.RcodeNotImplemented:
		return RcodeNotImplemented
	case dns.RcodeRefused:
		return RcodeQueryRefused
	default:
		return RcodeUnknown
	}
}

// BuildQuery constructs a standard recursive query (QNAME/IN/qtype) and
// returns its wire-format bytes.
func BuildQuery(name string, qtype QType) ([]byte, error) {
	if name == "" {
		return nil, fmt.Errorf("wire: empty DNS name")
	}
	fqdn := dns.Fqdn(name)
	if _, ok := dns.IsDomainName(fqdn); !ok {
		return nil, fmt.Errorf("wire: %q is not a valid DNS name", name)
	}
	msg := new(dns.Msg)
	msg.SetQuestion(fqdn, uint16(qtype))
	msg.RecursionDesired = true
	return msg.Pack()
}

// Reply is the parsed, capped, discriminated result of a DNS answer:
// either up to MaxAddresses IPv4 addresses (A/PTR-as-address replies
// don't apply here, PTR yields Strings) or up to MaxStrings strings
// (truncated to MaxStringLen bytes each), tagged by the query type that
// produced it.
type Reply struct {
	QType     QType
	RcodeKind RcodeKind
	Addresses []net.IP
	Strings   []string
}

// ParseReply unmarshals a raw DNS response and extracts the records
// matching qtype, walking answer, authority, and additional sections in
// that order, applying the fixed record caps and string-truncation
// limits.
func ParseReply(raw []byte, qtype QType) (*Reply, error) {
	msg := new(dns.Msg)
	if err := msg.Unpack(raw); err != nil {
		return nil, fmt.Errorf("wire: unpack dns reply: %w", err)
	}

	reply := &Reply{QType: qtype, RcodeKind: RcodeToKind(msg.Rcode)}
	if reply.RcodeKind != RcodeNoError {
		return reply, nil
	}

	sections := make([]dns.RR, 0, len(msg.Answer)+len(msg.Ns)+len(msg.Extra))
	sections = append(sections, msg.Answer...)
	sections = append(sections, msg.Ns...)
	sections = append(sections, msg.Extra...)

	for _, rr := range sections {
		if len(reply.Addresses) >= MaxAddresses && len(reply.Strings) >= MaxStrings {
			break
		}
		switch v := rr.(type) {
		case *dns.A:
			if qtype == QTypeA && len(reply.Addresses) < MaxAddresses {
				reply.Addresses = append(reply.Addresses, v.A.To4())
			}
		case *dns.PTR:
			if qtype == QTypePTR && len(reply.Strings) < MaxStrings {
				reply.Strings = append(reply.Strings, truncate(v.Ptr))
			}
		case *dns.NS:
			if qtype == QTypeNS && len(reply.Strings) < MaxStrings {
				reply.Strings = append(reply.Strings, truncate(v.Ns))
			}
		case *dns.CNAME:
			if qtype == QTypeCNAME && len(reply.Strings) < MaxStrings {
				reply.Strings = append(reply.Strings, truncate(v.Target))
			}
		case *dns.SOA:
			if qtype == QTypeSOA && len(reply.Strings) < MaxStrings {
				reply.Strings = append(reply.Strings, truncate(fmt.Sprintf(
					"%s %s %d %d %d %d %d",
					v.Ns, v.Mbox, v.Serial, v.Refresh, v.Retry, v.Expire, v.Minttl,
				)))
			}
		case *dns.HINFO:
			if qtype == QTypeHINFO && len(reply.Strings) < MaxStrings {
				reply.Strings = append(reply.Strings, truncate(v.Cpu+" "+v.Os))
			}
		case *dns.TXT:
			if qtype == QTypeTXT && len(reply.Strings) < MaxStrings {
				for _, s := range v.Txt {
					if len(reply.Strings) >= MaxStrings {
						break
					}
					reply.Strings = append(reply.Strings, truncate(s))
				}
			}
		case *dns.MX:
			if qtype == QTypeMX && len(reply.Strings) < MaxStrings {
				reply.Strings = append(reply.Strings, truncate(fmt.Sprintf("%d %s", v.Preference, v.Mx)))
			}
		}
	}

	// A no-error reply with no matching records keeps RcodeKind empty;
	// the resolver façade turns that into "no answer".
	return reply, nil
}

func truncate(s string) string {
	if len(s) > MaxStringLen {
		return s[:MaxStringLen]
	}
	return s
}

// BuildPTRName builds the reverse-lookup name "d.c.b.a.in-addr.arpa." for
// an IPv4 address, used for reverse name lookups.
func BuildPTRName(ip net.IP) (string, error) {
	v4 := ip.To4()
	if v4 == nil {
		return "", fmt.Errorf("wire: %v is not an IPv4 address", ip)
	}
	return fmt.Sprintf("%d.%d.%d.%d.in-addr.arpa.", v4[3], v4[2], v4[1], v4[0]), nil
}
