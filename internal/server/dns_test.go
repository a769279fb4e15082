package server

import (
	"net"
	"testing"

	"github.com/miekg/dns"
)

func startTestDNS(t *testing.T) string {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket() error = %v", err)
	}

	captive := NewCaptiveDNS(net.ParseIP(DefaultPortalIP))
	started := make(chan struct{})
	go func() { _ = captive.Serve(pc, func() { close(started) }) }()
	<-started
	t.Cleanup(func() { _ = captive.Shutdown() })

	return pc.LocalAddr().String()
}

func TestCaptiveDNS_AnswersEveryName(t *testing.T) {
	addr := startTestDNS(t)
	client := new(dns.Client)

	for _, name := range []string{"example.com.", "connectivitycheck.gstatic.com.", "captive.apple.com."} {
		m := new(dns.Msg)
		m.SetQuestion(name, dns.TypeA)

		reply, _, err := client.Exchange(m, addr)
		if err != nil {
			t.Fatalf("Exchange(%s) error = %v", name, err)
		}
		if !reply.Authoritative {
			t.Errorf("%s: reply not authoritative", name)
		}
		if len(reply.Answer) != 1 {
			t.Fatalf("%s: got %d answers, want 1", name, len(reply.Answer))
		}
		a, ok := reply.Answer[0].(*dns.A)
		if !ok {
			t.Fatalf("%s: answer is %T, want *dns.A", name, reply.Answer[0])
		}
		if !a.A.Equal(net.ParseIP(DefaultPortalIP)) {
			t.Errorf("%s: A = %s, want %s", name, a.A, DefaultPortalIP)
		}
		if a.Hdr.Ttl != captiveTTL {
			t.Errorf("%s: TTL = %d, want %d", name, a.Hdr.Ttl, captiveTTL)
		}
	}
}

func TestCaptiveDNS_OtherTypesGetEmptyAnswer(t *testing.T) {
	addr := startTestDNS(t)

	m := new(dns.Msg)
	m.SetQuestion("example.com.", dns.TypeAAAA)

	reply, _, err := new(dns.Client).Exchange(m, addr)
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if reply.Rcode != dns.RcodeSuccess {
		t.Errorf("Rcode = %s, want NOERROR", dns.RcodeToString[reply.Rcode])
	}
	if len(reply.Answer) != 0 {
		t.Errorf("got %d answers, want none", len(reply.Answer))
	}
}
