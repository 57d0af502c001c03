package main

import (
	"context"
	"fmt"
	"net"
	"strings"
	"unicode/utf8"

	"github.com/miekg/dns"

	"ollamaui/chat"
	"ollamaui/config"
	"ollamaui/logger"
)

// DNSServer answers TXT queries such as what-is-go.chat.example.com with a chat response
type DNSServer struct {
	cfg       *config.Config
	responder *chat.Responder
	limiter   *RateLimiter
	zone      string
}

// NewDNSServer creates the DNS front-end
func NewDNSServer(cfg *config.Config, responder *chat.Responder, limiter *RateLimiter) *DNSServer {
	zone := strings.Trim(cfg.DNS.Zone, ".")
	return &DNSServer{
		cfg:       cfg,
		responder: responder,
		limiter:   limiter,
		zone:      zone,
	}
}

// ListenAndServe serves UDP until ctx is done
func (s *DNSServer) ListenAndServe(ctx context.Context, port int) error {
	server := &dns.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Net:     "udp",
		Handler: s,
	}

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	logger.Component("DNS").Info("listening", "addr", server.Addr, "zone", s.zone)
	if err := server.ListenAndServe(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// ServeDNS implements dns.Handler
func (s *DNSServer) ServeDNS(w dns.ResponseWriter, r *dns.Msg) {
	if !s.limiter.Allow(w.RemoteAddr().String()) {
		return
	}

	if len(r.Question) == 0 {
		return
	}

	m := new(dns.Msg)
	m.SetReply(r)
	m.Authoritative = true

	for _, q := range r.Question {
		if q.Qtype != dns.TypeTXT {
			continue
		}

		prompt := s.promptFromName(q.Name)
		if prompt == "" {
			continue
		}

		answer := s.answer(prompt, w.RemoteAddr())
		m.Answer = append(m.Answer, &dns.TXT{
			Hdr: dns.RR_Header{
				Name:   q.Name,
				Rrtype: dns.TypeTXT,
				Class:  dns.ClassINET,
				Ttl:    60,
			},
			Txt: splitTXT(answer),
		})
	}

	if err := w.WriteMsg(m); err != nil {
		logger.Component("DNS").Error("failed to write answer", "err", err)
	}
}

// promptFromName turns what-is-go.chat.example.com. into "what is go"
func (s *DNSServer) promptFromName(qname string) string {
	name := strings.TrimSuffix(strings.ToLower(qname), ".")
	if s.zone != "" {
		name = strings.TrimSuffix(name, "."+strings.ToLower(s.zone))
	}
	name = strings.ReplaceAll(name, ".", " ")
	return strings.TrimSpace(strings.ReplaceAll(name, "-", " "))
}

func (s *DNSServer) answer(prompt string, remote net.Addr) string {
	telemetry := newTelemetry("DNS", remote.String())
	defer telemetry.Finish()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.DNSDeadline())
	defer cancel()

	model := s.model(ctx)
	telemetry.Model = model
	telemetry.InputHash = generateSignature(prompt)

	dnsPrompt := fmt.Sprintf("Answer in %d characters or less, no markdown formatting: %s", s.cfg.DNS.MaxChars, prompt)
	result, err := s.responder.GenerateChatResponse(ctx, dnsPrompt, model, chat.WithPrompt(nil, dnsPrompt))
	if err != nil {
		kind := chat.KindOf(err)
		telemetry.ErrorKind = string(kind)
		if kind == chat.KindTimeout {
			return "Request timed out"
		}
		return "Error: " + string(kind)
	}

	telemetry.OutputHash = generateSignature(result.Response)
	return truncate(result.Response, s.cfg.DNS.MaxChars)
}

// model picks the configured DNS model, then the default, then the first installed one
func (s *DNSServer) model(ctx context.Context) string {
	if s.cfg.DNS.Model != "" {
		return s.cfg.DNS.Model
	}
	if s.cfg.Inference.DefaultModel != "" {
		return s.cfg.Inference.DefaultModel
	}
	list := s.responder.ListModels(ctx)
	if len(list) > 0 && !list[0].IsPlaceholder() {
		return list[0].Name
	}
	return ""
}

// truncate caps s at max bytes on a rune boundary, marking the cut with an ellipsis
func truncate(s string, max int) string {
	if max <= 3 || len(s) <= max {
		return s
	}
	cut := max - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// splitTXT splits into the 255-byte strings a TXT record can carry
func splitTXT(s string) []string {
	if s == "" {
		return []string{""}
	}
	var parts []string
	for i := 0; i < len(s); i += 255 {
		end := i + 255
		if end > len(s) {
			end = len(s)
		}
		parts = append(parts, s[i:end])
	}
	return parts
}
