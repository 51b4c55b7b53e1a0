package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strconv"
	"strings"

	"github.com/miekg/dns"
)

// DefaultResolverAddr is the systemd-resolved stub listener, the usual
// local DNS entry point.
const DefaultResolverAddr = "127.0.0.53:53"

// ConsentService is the SRV service label under which a domain advertises
// its consent endpoint.
const ConsentService = "_consent._tcp"

// NoEndpointError reports a domain that advertises no consent endpoint.
// There is deliberately no fallback endpoint; callers must handle this.
type NoEndpointError struct {
	Domain string
}

// Error implements the error interface.
func (e *NoEndpointError) Error() string {
	return fmt.Sprintf("no consent endpoint advertised for domain %s", e.Domain)
}

// Resolver discovers consent service endpoints through DNS SRV records.
type Resolver struct {
	addr   string
	client *dns.Client
	log    *slog.Logger
}

// NewResolver creates a resolver querying the nameserver at addr
// ("host:port"). An empty addr uses DefaultResolverAddr.
func NewResolver(addr string, log *slog.Logger) *Resolver {
	if addr == "" {
		addr = DefaultResolverAddr
	}
	return &Resolver{
		addr:   addr,
		client: new(dns.Client),
		log:    log,
	}
}

// ConsentEndpoint looks up the _consent._tcp SRV record for a domain and
// returns the advertised host:port, picking the lowest priority and, within
// it, the highest weight.
func (r *Resolver) ConsentEndpoint(ctx context.Context, domain string) (string, error) {
	if domain == "" {
		return "", errors.New("domain must not be empty")
	}

	name := dns.Fqdn(ConsentService + "." + domain)

	msg := new(dns.Msg)
	msg.Id = dns.Id()
	msg.RecursionDesired = true
	msg.Question = []dns.Question{{Name: name, Qtype: dns.TypeSRV, Qclass: dns.ClassINET}}

	in, _, err := r.client.ExchangeContext(ctx, msg, r.addr)
	if err != nil {
		return "", fmt.Errorf("could not query %s for %s: %w", r.addr, name, err)
	}

	records := make([]*dns.SRV, 0, len(in.Answer))
	for _, answer := range in.Answer {
		if srv, ok := answer.(*dns.SRV); ok {
			records = append(records, srv)
		}
	}
	if len(records) == 0 {
		return "", &NoEndpointError{Domain: domain}
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Priority != records[j].Priority {
			return records[i].Priority < records[j].Priority
		}
		return records[i].Weight > records[j].Weight
	})

	chosen := records[0]
	endpoint := net.JoinHostPort(strings.TrimSuffix(chosen.Target, "."), strconv.Itoa(int(chosen.Port)))

	r.log.Debug("resolved consent endpoint",
		slog.String("domain", domain),
		slog.String("endpoint", endpoint))

	return endpoint, nil
}
