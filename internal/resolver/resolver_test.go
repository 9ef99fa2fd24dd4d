package resolver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"

	"github.com/netvigil/tnmcore/internal/wire"
)

func TestParseQuad(t *testing.T) {
	cases := map[string]bool{
		"192.0.2.1":       true,
		"0.0.0.0":         true,
		"255.255.255.255": true,
		"256.0.0.1":       false,
		"1.2.3":           false,
		"1.2.3.4.5":       false,
		"01.2.3.4":        false,
		"a.b.c.d":         false,
	}
	for in, want := range cases {
		_, ok := ParseQuad(in)
		if ok != want {
			t.Errorf("ParseQuad(%q) ok = %v, want %v", in, ok, want)
		}
	}
}

func TestIsValidHostName(t *testing.T) {
	cases := map[string]bool{
		"www.example.com": true,
		"host-1":          true,
		"-bad":            false,
		"bad-":            false,
		"has_underscore":  false,
		"192.0.2.1":       false, // dotted quad, not a host name
		"":                false,
	}
	for in, want := range cases {
		if got := IsValidHostName(in); got != want {
			t.Errorf("IsValidHostName(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSearchCandidatesWalksList(t *testing.T) {
	got := searchCandidates("host", []string{"example.com", "corp.example.com"})
	want := []string{"host.example.com", "host.corp.example.com"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("candidate %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSearchCandidatesNoListTriesBareName(t *testing.T) {
	got := searchCandidates("host.example.com", nil)
	want := []string{"host.example.com"}
	if len(got) != len(want) || got[0] != want[0] {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestRecursesSearchList(t *testing.T) {
	for qtype, want := range map[wire.QType]bool{
		wire.QTypeNS:    true,
		wire.QTypeMX:    true,
		wire.QTypeCNAME: false,
		wire.QTypeSOA:   false,
		wire.QTypeTXT:   false,
		wire.QTypeHINFO: false,
		wire.QTypePTR:   false,
	} {
		if got := recursesSearchList(qtype); got != want {
			t.Errorf("recursesSearchList(%v) = %v, want %v", qtype, got, want)
		}
	}
}

// fakeDNSServer answers every query on loopback UDP with an A record
// pointing at answerIP, standing in for a real name server. It returns
// the ephemeral port it bound so tests can point a Config at it without
// needing the privileged port 53.
func fakeDNSServer(t *testing.T, answerIP net.IP) (port int, stop func()) {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	if err != nil {
		t.Fatalf("listen udp: %v", err)
	}

	done := make(chan struct{})
	go func() {
		buf := make([]byte, 512)
		for {
			n, peer, err := conn.ReadFromUDP(buf)
			if err != nil {
				select {
				case <-done:
					return
				default:
					continue
				}
			}
			req := new(dns.Msg)
			if err := req.Unpack(buf[:n]); err != nil {
				continue
			}
			resp := new(dns.Msg)
			resp.SetReply(req)
			if len(req.Question) == 1 {
				q := req.Question[0]
				switch q.Qtype {
				case dns.TypeA:
					resp.Answer = append(resp.Answer, &dns.A{
						Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 60},
						A:   answerIP,
					})
				case dns.TypePTR:
					resp.Answer = append(resp.Answer, &dns.PTR{
						Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypePTR, Class: dns.ClassINET, Ttl: 60},
						Ptr: "host.example.com.",
					})
				}
			}
			out, err := resp.Pack()
			if err != nil {
				continue
			}
			conn.WriteToUDP(out, peer)
		}
	}()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.Port, func() {
		close(done)
		conn.Close()
	}
}

func TestAddressNameForwardLookup(t *testing.T) {
	want := net.ParseIP("203.0.113.9").To4()
	port, stop := fakeDNSServer(t, want)
	defer stop()

	cfg := Config{
		Timeout:     500 * time.Millisecond,
		Retries:     1,
		Nameservers: []net.IP{net.ParseIP("127.0.0.1")},
		Port:        port,
	}
	r := New(cfg, zap.NewNop())

	got, err := r.AddressName(context.Background(), "host.example.com")
	if err != nil {
		t.Fatalf("AddressName: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}

	cached, ok := r.cache.getForward("host.example.com")
	if !ok || !cached.Equal(want) {
		t.Error("expected forward cache to be populated")
	}
}

func TestNameIPReverseLookup(t *testing.T) {
	port, stop := fakeDNSServer(t, net.ParseIP("203.0.113.9"))
	defer stop()

	cfg := Config{
		Timeout:     500 * time.Millisecond,
		Retries:     1,
		Nameservers: []net.IP{net.ParseIP("127.0.0.1")},
		Port:        port,
	}
	r := New(cfg, zap.NewNop())

	name, err := r.NameIP(context.Background(), "203.0.113.9")
	if err != nil {
		t.Fatalf("NameIP: %v", err)
	}
	if name != "host.example.com." {
		t.Errorf("name = %q, want %q", name, "host.example.com.")
	}
}

// selectiveDNSServer answers only queries for wantName (FQDN, trailing
// dot) with an A record for answerIP, and records every question name it
// sees in order, so tests can assert exactly which queries were issued.
func selectiveDNSServer(t *testing.T, wantName string, answerIP net.IP) (port int, seen *[]string, stop func()) {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	if err != nil {
		t.Fatalf("listen udp: %v", err)
	}

	var names []string
	done := make(chan struct{})
	go func() {
		buf := make([]byte, 512)
		for {
			n, peer, err := conn.ReadFromUDP(buf)
			if err != nil {
				select {
				case <-done:
					return
				default:
					continue
				}
			}
			req := new(dns.Msg)
			if err := req.Unpack(buf[:n]); err != nil {
				continue
			}
			resp := new(dns.Msg)
			resp.SetReply(req)
			if len(req.Question) == 1 {
				q := req.Question[0]
				names = append(names, q.Name)
				if q.Qtype == dns.TypeA && q.Name == wantName {
					resp.Answer = append(resp.Answer, &dns.A{
						Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 60},
						A:   answerIP,
					})
				}
			}
			out, err := resp.Pack()
			if err != nil {
				continue
			}
			conn.WriteToUDP(out, peer)
		}
	}()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.Port, &names, func() {
		close(done)
		conn.Close()
	}
}

func TestAddressNameSearchListOrderAndCount(t *testing.T) {
	want := net.ParseIP("203.0.113.9").To4()
	port, seen, stop := selectiveDNSServer(t, "www.example.net.", want)
	defer stop()

	cfg := Config{
		Timeout:     500 * time.Millisecond,
		Retries:     1,
		Nameservers: []net.IP{net.ParseIP("127.0.0.1")},
		Port:        port,
		SearchList:  []string{"example.org", "example.net"},
	}
	r := New(cfg, zap.NewNop())

	got, err := r.AddressName(context.Background(), "www")
	if err != nil {
		t.Fatalf("AddressName: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}

	wantNames := []string{"www.example.org.", "www.example.net."}
	if len(*seen) != len(wantNames) {
		t.Fatalf("queries issued = %v, want %v", *seen, wantNames)
	}
	for i, n := range wantNames {
		if (*seen)[i] != n {
			t.Errorf("query %d = %q, want %q", i, (*seen)[i], n)
		}
	}
}

func TestAddressNameRejectsInvalidHostName(t *testing.T) {
	r := New(DefaultConfig(), zap.NewNop())
	if _, err := r.AddressName(context.Background(), "-bad-"); err == nil {
		t.Fatal("expected validation error")
	}
}
