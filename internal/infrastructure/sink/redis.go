package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"PipelineDash/internal/domain"
	"PipelineDash/internal/ports"
)

// DefaultChannel is the pub/sub channel dashboard events go to.
const DefaultChannel = "pipelinedash:events"

// Event types published on the channel.
const (
	EventSnapshot     = "EVENT_SNAPSHOT"
	EventCountdown    = "EVENT_COUNTDOWN"
	EventLog          = "EVENT_LOG"
	EventCommandState = "EVENT_COMMAND_STATE"
)

// Event is the JSON envelope of a published update.
type Event struct {
	Type    string          `json:"type"`
	At      time.Time       `json:"at"`
	Payload json.RawMessage `json:"payload"`
}

// Redis publishes dashboard updates as JSON events for remote viewers.
// Publishing is best-effort; failures are logged and dropped.
type Redis struct {
	client  redis.UniversalClient
	channel string
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

var _ ports.Sink = (*Redis)(nil)

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

// NewRedis publishes on channel, DefaultChannel when empty.
func NewRedis(client redis.UniversalClient, channel string, logger *slog.Logger) *Redis {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Redis{
		client:  client,
		channel: channel,
		timeout: 2 * time.Second,
		logger:  logger,
		now:     time.Now,
	}
}

func (r *Redis) PublishSnapshot(s domain.Snapshot) {
	r.publish(EventSnapshot, s)
}

func (r *Redis) PublishCountdown(remaining int) {
	r.publish(EventCountdown, map[string]int{"remaining": remaining})
}

func (r *Redis) PublishLog(e domain.ActivityLogEntry) {
	r.publish(EventLog, e)
}

func (r *Redis) PublishCommandState(name string, state domain.CommandState) {
	r.publish(EventCommandState, map[string]string{"name": name, "state": string(state)})
}

func (r *Redis) publish(eventType string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		r.logger.Warn("encode event failed", "type", eventType, "err", err)
		return
	}
	event, err := json.Marshal(Event{Type: eventType, At: r.now().UTC(), Payload: body})
	if err != nil {
		r.logger.Warn("encode event failed", "type", eventType, "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.client.Publish(ctx, r.channel, event).Err(); err != nil {
		r.logger.Warn("publish event failed", "type", eventType, "channel", r.channel, "err", err)
	}
}
