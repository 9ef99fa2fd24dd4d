package wire

import (
	"net"
	"testing"

	"github.com/miekg/dns"
)

func TestBuildQuery(t *testing.T) {
	raw, err := BuildQuery("www.example.com", QTypeA)
	if err != nil {
		t.Fatalf("BuildQuery: %v", err)
	}
	msg := new(dns.Msg)
	if err := msg.Unpack(raw); err != nil {
		t.Fatalf("unpack built query: %v", err)
	}
	if len(msg.Question) != 1 {
		t.Fatalf("question count = %d, want 1", len(msg.Question))
	}
	if msg.Question[0].Name != "www.example.com." {
		t.Errorf("qname = %q, want %q", msg.Question[0].Name, "www.example.com.")
	}
	if msg.Question[0].Qtype != dns.TypeA {
		t.Errorf("qtype = %d, want %d", msg.Question[0].Qtype, dns.TypeA)
	}
	if !msg.RecursionDesired {
		t.Error("RecursionDesired = false, want true")
	}
}

func TestBuildQueryRejectsInvalidName(t *testing.T) {
	if _, err := BuildQuery("", QTypeA); err == nil {
		t.Fatal("expected error for empty name")
	}
}

// buildAnswer constructs a minimal, valid DNS response for testing the
// parser without a live server.
func buildAnswer(t *testing.T, qname string, qtype uint16, rrs ...dns.RR) []byte {
	t.Helper()
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(qname), qtype)
	msg.Response = true
	msg.Answer = rrs
	raw, err := msg.Pack()
	if err != nil {
		t.Fatalf("pack test answer: %v", err)
	}
	return raw
}

func TestParseReplyA(t *testing.T) {
	rr, err := dns.NewRR("www.example.net. 300 IN A 203.0.113.7")
	if err != nil {
		t.Fatal(err)
	}
	raw := buildAnswer(t, "www.example.net", dns.TypeA, rr)

	reply, err := ParseReply(raw, QTypeA)
	if err != nil {
		t.Fatalf("ParseReply: %v", err)
	}
	if reply.RcodeKind != RcodeNoError {
		t.Fatalf("RcodeKind = %q, want no error", reply.RcodeKind)
	}
	if len(reply.Addresses) != 1 || !reply.Addresses[0].Equal(net.ParseIP("203.0.113.7")) {
		t.Errorf("Addresses = %v, want [203.0.113.7]", reply.Addresses)
	}
}

// A single DNS character-string cannot exceed 255 bytes on the wire, so
// truncation is exercised through HINFO, whose "cpu os" rendering joins
// two strings (200 + 1 + 200 = 401 bytes).
func TestParseReplyHINFOTruncates(t *testing.T) {
	cpu := make([]byte, 200)
	os := make([]byte, 200)
	for i := range cpu {
		cpu[i] = 'a'
		os[i] = 'b'
	}
	rr := &dns.HINFO{
		Hdr: dns.RR_Header{Name: "hinfo.example.", Rrtype: dns.TypeHINFO, Class: dns.ClassINET, Ttl: 300},
		Cpu: string(cpu),
		Os:  string(os),
	}
	raw := buildAnswer(t, "hinfo.example", dns.TypeHINFO, rr)

	reply, err := ParseReply(raw, QTypeHINFO)
	if err != nil {
		t.Fatalf("ParseReply: %v", err)
	}
	if len(reply.Strings) != 1 {
		t.Fatalf("Strings count = %d, want 1", len(reply.Strings))
	}
	if len(reply.Strings[0]) != MaxStringLen {
		t.Errorf("truncated length = %d, want %d", len(reply.Strings[0]), MaxStringLen)
	}
}

func TestParseReplyCapsAt30Addresses(t *testing.T) {
	var rrs []dns.RR
	for i := 0; i < 40; i++ {
		rr := &dns.A{
			Hdr: dns.RR_Header{Name: "many.example.", Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 300},
			A:   net.IPv4(203, 0, 113, byte(i)),
		}
		rrs = append(rrs, rr)
	}
	raw := buildAnswer(t, "many.example", dns.TypeA, rrs...)

	reply, err := ParseReply(raw, QTypeA)
	if err != nil {
		t.Fatalf("ParseReply: %v", err)
	}
	if len(reply.Addresses) != MaxAddresses {
		t.Errorf("Addresses count = %d, want %d", len(reply.Addresses), MaxAddresses)
	}
}

func TestRcodeToKind(t *testing.T) {
	cases := map[int]RcodeKind{
		dns.RcodeSuccess:        RcodeNoError,
		dns.RcodeFormatError:    RcodeFormatError,
		dns.RcodeServerFailure:  RcodeServerFailure,
		dns.RcodeNameError:      RcodeNonExistentDomain,
		dns.RcodeNotImplemented: RcodeNotImplemented,
		dns.RcodeRefused:        RcodeQueryRefused,
	}
	for rcode, want := range cases {
		if got := RcodeToKind(rcode); got != want {
			t.Errorf("RcodeToKind(%d) = %q, want %q", rcode, got, want)
		}
	}
}

func TestBuildPTRName(t *testing.T) {
	name, err := BuildPTRName(net.ParseIP("192.0.2.1"))
	if err != nil {
		t.Fatal(err)
	}
	if name != "1.2.0.192.in-addr.arpa." {
		t.Errorf("name = %q, want %q", name, "1.2.0.192.in-addr.arpa.")
	}
}
