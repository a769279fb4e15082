package server

import (
	"net"
	"strings"

	"github.com/miekg/dns"
	"go.uber.org/zap"

	"github.com/muurk/netsetup/internal/logging"
)

// captiveTTL is the TTL of every captive answer, in seconds.
const captiveTTL = 60

// CaptiveDNS answers every address query with the portal's IP, so that
// clients joining the access point land on the setup pages whatever name
// they look up.
type CaptiveDNS struct {
	ip     net.IP
	server *dns.Server
}

// NewCaptiveDNS creates a resolver answering with ip.
func NewCaptiveDNS(ip net.IP) *CaptiveDNS {
	return &CaptiveDNS{ip: ip.To4()}
}

// ServeDNS implements dns.Handler
func (c *CaptiveDNS) ServeDNS(w dns.ResponseWriter, req *dns.Msg) {
	m := new(dns.Msg)
	m.SetReply(req)
	m.Authoritative = true

	for _, q := range req.Question {
		if q.Qclass != dns.ClassINET {
			continue
		}
		switch q.Qtype {
		case dns.TypeA, dns.TypeANY:
			m.Answer = append(m.Answer, &dns.A{
				Hdr: dns.RR_Header{
					Name:   q.Name,
					Rrtype: dns.TypeA,
					Class:  dns.ClassINET,
					Ttl:    captiveTTL,
				},
				A: c.ip,
			})
		}
		logging.Debug("Captive DNS query",
			zap.String("name", strings.TrimSuffix(q.Name, ".")),
			zap.String("type", dns.TypeToString[q.Qtype]),
		)
	}

	if err := w.WriteMsg(m); err != nil {
		logging.Debug("Captive DNS reply failed", zap.Error(err))
	}
}

// Serve answers queries arriving on pc until Shutdown. started, if not
// nil, is called once the server is accepting queries.
func (c *CaptiveDNS) Serve(pc net.PacketConn, started func()) error {
	c.server = &dns.Server{
		PacketConn:        pc,
		Handler:           c,
		NotifyStartedFunc: started,
	}
	return c.server.ActivateAndServe()
}

// Shutdown stops the server.
func (c *CaptiveDNS) Shutdown() error {
	if c.server == nil {
		return nil
	}
	return c.server.Shutdown()
}
