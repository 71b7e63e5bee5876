// Package natsrpc answers URL validation requests over NATS request/reply.
//
// Requests are JSON objects of the form {"url": "..."} sent to one of
//
//	<prefix>.link
//	<prefix>.image
//	<prefix>.ssrf
//
// and the reply is the JSON verdict. Malformed requests are answered with
// {"error": "..."} rather than dropped, so callers never wait for a timeout.
package natsrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360studio/urlguard/config"
	"github.com/c360studio/urlguard/metrics"
	"github.com/c360studio/urlguard/urlsafety"
)

// Request is the body of a validation request.
type Request struct {
	URL string `json:"url"`
}

// ErrorReply is sent in place of a verdict when a request cannot be handled.
type ErrorReply struct {
	Error string `json:"error"`
}

// Responder handles validation requests. Policy is read from the holder per
// message.
type Responder struct {
	holder  *config.Holder
	metrics *metrics.Metrics
	logger  *slog.Logger
	prefix  string
}

// NewResponder creates a Responder for subjects under prefix.
func NewResponder(prefix string, holder *config.Holder, m *metrics.Metrics, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{
		holder:  holder,
		metrics: m,
		logger:  logger,
		prefix:  strings.TrimSuffix(prefix, "."),
	}
}

// Subjects returns the subjects the responder answers, keyed by check name.
func (r *Responder) Subjects() map[string]string {
	return map[string]string{
		metrics.CheckLink:  r.prefix + "." + metrics.CheckLink,
		metrics.CheckImage: r.prefix + "." + metrics.CheckImage,
		metrics.CheckSSRF:  r.prefix + "." + metrics.CheckSSRF,
	}
}

// Handle produces the reply for a request on subject.
func (r *Responder) Handle(subject string, data []byte) []byte {
	start := time.Now()
	check, ok := strings.CutPrefix(subject, r.prefix+".")
	if !ok {
		return errorReply("unknown subject %q", subject)
	}

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return errorReply("invalid request: %v", err)
	}

	policy := r.holder.Policy()
	var reply any
	switch check {
	case metrics.CheckLink:
		res := policy.ValidateLink(req.URL)
		r.metrics.RecordValidation(check, res)
		reply = res
	case metrics.CheckImage:
		res := policy.ValidateImage(req.URL)
		r.metrics.RecordValidation(check, res)
		reply = res
	case metrics.CheckSSRF:
		res := urlsafety.CheckSSRF(req.URL)
		r.metrics.RecordVerdict(check, res.IsSafe, res.ErrorCode)
		reply = res
	default:
		return errorReply("unknown check %q", check)
	}
	r.metrics.ObserveRequest(metrics.TransportNATS, check, time.Since(start))

	out, err := json.Marshal(reply)
	if err != nil {
		return errorReply("encode reply: %v", err)
	}
	return out
}

// Serve subscribes to every subject in queue group queue and answers requests
// until ctx is done. Subscriptions are drained before returning.
func (r *Responder) Serve(ctx context.Context, nc *nats.Conn, queue string) error {
	var subs []*nats.Subscription
	for _, subject := range r.Subjects() {
		sub, err := nc.QueueSubscribe(subject, queue, r.onMessage)
		if err != nil {
			for _, s := range subs {
				_ = s.Unsubscribe()
			}
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		subs = append(subs, sub)
	}
	if err := nc.Flush(); err != nil {
		return fmt.Errorf("flush subscriptions: %w", err)
	}
	r.logger.Info("NATS responder started", "prefix", r.prefix, "queue", queue)

	<-ctx.Done()

	for _, s := range subs {
		if err := s.Drain(); err != nil {
			r.logger.Warn("Failed to drain subscription", "subject", s.Subject, "error", err)
		}
	}
	r.logger.Info("NATS responder stopped")
	return nil
}

func (r *Responder) onMessage(msg *nats.Msg) {
	if msg.Reply == "" {
		r.logger.Debug("Dropping request without reply subject", "subject", msg.Subject)
		return
	}
	if err := msg.Respond(r.Handle(msg.Subject, msg.Data)); err != nil {
		r.logger.Warn("Failed to send reply", "subject", msg.Subject, "error", err)
	}
}

// Connect dials the configured NATS server.
func Connect(cfg config.NATSConfig, logger *slog.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}
	nc, err := nats.Connect(cfg.URL,
		nats.Name("urlguard"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", cfg.URL, err)
	}
	return nc, nil
}

func errorReply(format string, args ...any) []byte {
	out, _ := json.Marshal(ErrorReply{Error: fmt.Sprintf(format, args...)})
	return out
}
