// internal/metrics/metrics.go
package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// Process-wide gauges exposed by /api/stats.
var (
	clientCount atomic.Int64
	roomCount   atomic.Int64
)

func ClientCount() int64 { return clientCount.Load() }
func RoomCount() int64   { return roomCount.Load() }

func NewClient()    { clientCount.Add(1) }
func RemoveClient() { clientCount.Add(-1) }
func NewRoom()      { roomCount.Add(1) }
func RemoveRoom()   { roomCount.Add(-1) }

// Event kinds pushed to the external event queue.
const (
	EventRoomCreated  = "room_created"
	EventRoomPruned   = "room_pruned"
	EventRoundStarted = "round_started"
	EventRoundEnded   = "round_ended"
)

// DefaultQueueName is the Redis list external dashboards consume from.
var DefaultQueueName = "qspy_events"

// Event is the minimal record pushed per lifecycle transition. Room is
// the public room ID, never the human-chosen name.
type Event struct {
	Kind      string `json:"kind"`
	Room      string `json:"room,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

var rdb *redis.Client

// ConnectRedis initializes the optional Redis client from REDIS_ADDR.
// When the variable is unset the event queue stays disabled and every
// Publish call is a no-op; the gauges keep working either way.
func ConnectRedis() error {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	rdb = client
	return nil
}

// Publish pushes a lifecycle event to the queue, fire-and-forget. The
// caller never blocks on Redis: the push runs on its own goroutine with
// its own timeout.
func Publish(kind, room string) {
	if rdb == nil {
		return
	}
	ev := Event{Kind: kind, Room: room, Timestamp: time.Now().Unix()}
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	queue := os.Getenv("METRICS_QUEUE_NAME")
	if queue == "" {
		queue = DefaultQueueName
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		rdb.LPush(ctx, queue, data)
	}()
}
