package notify

import (
	"context"

	pubnub "github.com/pubnub/go"

	"ms-membership/internal/config"
	"ms-membership/internal/models"
)

// Publisher is the part of the PubNub publish builder chain used here.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

type pubnubPublisher struct {
	pn *pubnub.PubNub
}

func (p *pubnubPublisher) Publish(ctx context.Context, channel string, message interface{}) error {
	done := make(chan error, 1)
	go func() {
		_, _, err := p.pn.Publish().
			Channel(channel).
			Message(message).
			Execute()
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PubNubNotifier pushes notifications to the "<prefix><eventId>" channel.
type PubNubNotifier struct {
	Publisher     Publisher
	ChannelPrefix string
}

func NewPubNubNotifier(cfg config.PubNubConfig) *PubNubNotifier {
	pnConfig := pubnub.NewConfig()
	pnConfig.PublishKey = cfg.PublishKey
	pnConfig.SubscribeKey = cfg.SubscribeKey
	pnConfig.SecretKey = cfg.SecretKey

	return &PubNubNotifier{
		Publisher:     &pubnubPublisher{pn: pubnub.NewPubNub(pnConfig)},
		ChannelPrefix: cfg.ChannelPrefix,
	}
}

func (p *PubNubNotifier) Name() string { return "pubnub" }

func (p *PubNubNotifier) Notify(ctx context.Context, n models.Notification) error {
	return p.Publisher.Publish(ctx, p.ChannelPrefix+n.EventID, map[string]interface{}{
		"type":     "registration_update",
		"kind":     n.Kind,
		"event_id": n.EventID,
		"name":     n.Name,
		"role":     n.Role,
		"summary":  n.Summary,
		"at":       n.At,
	})
}
