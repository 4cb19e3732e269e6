package webpush

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	webpushgo "github.com/SherClockHolmes/webpush-go"
	"github.com/gaiathon25/gaiathon-notify/internal/modules/notification/domain"
)

// Config carries the VAPID identity used to sign every push request.
type Config struct {
	Subject    string
	PublicKey  string
	PrivateKey string
	TTL        time.Duration
}

type Sender struct {
	cfg    Config
	client webpushgo.HTTPClient
}

func NewSender(cfg Config, client webpushgo.HTTPClient) *Sender {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Sender{cfg: cfg, client: client}
}

func (s *Sender) PublicKey() string {
	return s.cfg.PublicKey
}

// Send encrypts payload for sub and posts it to the subscription endpoint.
// A 404 or 410 from the push service means the subscription is gone.
func (s *Sender) Send(ctx context.Context, sub domain.PushSubscription, payload []byte, priority domain.Priority) error {
	if s.cfg.PublicKey == "" || s.cfg.PrivateKey == "" {
		return domain.ErrVAPIDNotConfigured
	}

	resp, err := webpushgo.SendNotificationWithContext(ctx, payload, &webpushgo.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpushgo.Keys{
			P256dh: sub.Keys.P256dh,
			Auth:   sub.Keys.Auth,
		},
	}, &webpushgo.Options{
		HTTPClient:      s.client,
		Subscriber:      s.cfg.Subject,
		VAPIDPublicKey:  s.cfg.PublicKey,
		VAPIDPrivateKey: s.cfg.PrivateKey,
		TTL:             int(s.cfg.TTL.Seconds()),
		Urgency:         urgencyFor(priority),
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return domain.ErrSubscriptionGone
	case resp.StatusCode >= 400:
		return fmt.Errorf("push service responded with status %d", resp.StatusCode)
	}
	return nil
}

func urgencyFor(p domain.Priority) webpushgo.Urgency {
	switch p {
	case domain.PriorityLow:
		return webpushgo.UrgencyLow
	case domain.PriorityHigh, domain.PriorityUrgent:
		return webpushgo.UrgencyHigh
	default:
		return webpushgo.UrgencyNormal
	}
}

// GenerateKeys returns a fresh VAPID key pair, public key first.
func GenerateKeys() (publicKey, privateKey string, err error) {
	privateKey, publicKey, err = webpushgo.GenerateVAPIDKeys()
	return publicKey, privateKey, err
}
