package messaging

import (
	"context"
	"fmt"
)

// ChannelPublisher publishes typed messages to one broker channel.
type ChannelPublisher struct {
	broker  Broker
	channel string
}

func NewChannelPublisher(broker Broker, channel string) *ChannelPublisher {
	return &ChannelPublisher{broker: broker, channel: channel}
}

func (p *ChannelPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	if err := p.broker.Publish(ctx, p.channel, Message{Type: eventType, Payload: payload}); err != nil {
		return fmt.Errorf("publish %s to %s: %w", eventType, p.channel, err)
	}
	return nil
}

func (p *ChannelPublisher) Channel() string {
	return p.channel
}
