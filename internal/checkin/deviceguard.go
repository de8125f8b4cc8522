package checkin

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DeviceGuard serializes scans per physical scanning device: while one scan's
// pipeline is in flight, further scans from the same device are dropped, not
// queued, because a camera feed delivers rapid duplicate frames of one
// physical code.
//
// The in-process set is authoritative for a single instance. When Redis is
// configured, a SetNX lock with a short TTL extends the drop window across
// instances; Redis being down degrades to in-process-only guarding rather
// than blocking scans.
type DeviceGuard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}

	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewDeviceGuard(rdb *redis.Client, logger *slog.Logger) *DeviceGuard {
	return &DeviceGuard{
		inFlight: make(map[string]struct{}),
		rdb:      rdb,
		ttl:      3 * time.Second,
		logger:   logger,
	}
}

func lockKey(deviceID string) string {
	// Escape the delimiter so a hostile device ID cannot collide with a
	// neighboring key.
	out := make([]byte, 0, len(deviceID))
	for i := 0; i < len(deviceID); i++ {
		if deviceID[i] == ':' {
			out = append(out, '_')
			continue
		}
		out = append(out, deviceID[i])
	}
	return "scanlock:" + string(out)
}

// TryAcquire reports whether the device may start a scan. False means a scan
// from the same device is already in flight and this one must be dropped.
func (g *DeviceGuard) TryAcquire(ctx context.Context, deviceID string) bool {
	g.mu.Lock()
	if _, busy := g.inFlight[deviceID]; busy {
		g.mu.Unlock()
		return false
	}
	g.inFlight[deviceID] = struct{}{}
	g.mu.Unlock()

	if g.rdb == nil {
		return true
	}
	ok, err := g.rdb.SetNX(ctx, lockKey(deviceID), 1, g.ttl).Result()
	if err != nil {
		g.logger.WarnContext(ctx, "device lock unavailable, in-process guard only",
			"device_id", deviceID, "error", err)
		return true
	}
	if !ok {
		g.release(deviceID)
		return false
	}
	return true
}

// Release clears the in-flight marker. Called on every terminal outcome,
// including I/O errors, so a stuck scan never wedges the device.
func (g *DeviceGuard) Release(ctx context.Context, deviceID string) {
	g.release(deviceID)
	if g.rdb != nil {
		if err := g.rdb.Del(ctx, lockKey(deviceID)).Err(); err != nil {
			// The TTL clears it shortly anyway.
			g.logger.DebugContext(ctx, "device lock release failed", "device_id", deviceID, "error", err)
		}
	}
}

func (g *DeviceGuard) release(deviceID string) {
	g.mu.Lock()
	delete(g.inFlight, deviceID)
	g.mu.Unlock()
}
