package redis

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"

	"dispatch/internal/domain"
)

// RidesChangedChannel carries the id of every ride whose state changed.
const RidesChangedChannel = "rides:changed"

// ChangePublisher publishes ride change signals for polling clients.
type ChangePublisher struct {
	client *redis.Client
}

// NewChangePublisher creates a new ChangePublisher.
func NewChangePublisher(client *redis.Client) *ChangePublisher {
	return &ChangePublisher{client: client}
}

// Notify publishes the ride id of the notification on RidesChangedChannel.
func (p *ChangePublisher) Notify(ctx context.Context, n domain.Notification) error {
	if n.Ride == nil {
		return nil
	}
	return p.client.Publish(ctx, RidesChangedChannel, strconv.FormatInt(n.Ride.ID, 10)).Err()
}

// Name identifies the notifier in logs.
func (p *ChangePublisher) Name() string { return "redis" }
