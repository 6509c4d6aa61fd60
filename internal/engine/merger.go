package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dm/fleetmon-go/internal/client"
	"github.com/dm/fleetmon-go/internal/model"
)

// ErrRegistry marks a cycle that was skipped because the device registry
// could not be fetched. The previous snapshot stays in effect.
var ErrRegistry = errors.New("device registry unavailable")

// EvictionPolicy decides what happens to the stored position of a device
// that no longer appears in the registry.
type EvictionPolicy int

const (
	// EvictNever keeps positions of removed devices until the process exits.
	EvictNever EvictionPolicy = iota
	// EvictMissing drops them on the first successful registry fetch that
	// does not list the device.
	EvictMissing
)

// ParseEvictionPolicy maps "never" / "missing" to a policy.
func ParseEvictionPolicy(s string) (EvictionPolicy, error) {
	switch s {
	case "", "never":
		return EvictNever, nil
	case "missing":
		return EvictMissing, nil
	default:
		return EvictNever, fmt.Errorf("unknown eviction policy %q (want never or missing)", s)
	}
}

// MergeOptions tunes a merge cycle.
type MergeOptions struct {
	// Concurrency caps in-flight position fetches. Zero or less means one
	// goroutine per device.
	Concurrency int
	Eviction    EvictionPolicy
	Logger      zerolog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

func (o MergeOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// CycleResult is the outcome of one MergeCycle call.
type CycleResult struct {
	// Snapshot is never nil. On registry failure it is the previous
	// snapshot, unchanged.
	Snapshot *model.Snapshot
	// Err is non-nil only for a registry failure and wraps ErrRegistry.
	Err error
}

type positionResult struct {
	pos *client.Position
	err error
}

// MergeCycle fetches the registry, then every device's latest position
// concurrently, and folds the results into a new snapshot. All fetches are
// allowed to settle; one device's failure never cancels another's. A device
// whose fetch fails or returns nothing keeps its position from prev.
func MergeCycle(ctx context.Context, c client.FleetClient, prev *model.Snapshot, opts MergeOptions) CycleResult {
	if prev == nil {
		prev = model.EmptySnapshot()
	}
	log := opts.Logger
	start := opts.now()

	devices, err := c.GetDevices(ctx)
	if err != nil {
		log.Error().
			Err(err).
			Int("status", client.StatusOf(err)).
			Uint64("cycle", prev.Cycle+1).
			Msg("Device registry fetch failed; keeping previous snapshot")
		return CycleResult{Snapshot: prev, Err: fmt.Errorf("%w: %w", ErrRegistry, err)}
	}

	results := make([]positionResult, len(devices))

	// A plain Group, not WithContext: no fetch may cancel its siblings.
	var g errgroup.Group
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}
	for i, d := range devices {
		i, d := i, d
		g.Go(func() error {
			pos, err := c.GetLatestPosition(ctx, d.ID)
			results[i] = positionResult{pos: pos, err: err}
			return nil
		})
	}
	_ = g.Wait()

	stats := model.CycleStats{Devices: len(devices)}
	positions := make(map[int64]client.Position, len(prev.Positions)+len(devices))

	inRegistry := make(map[int64]struct{}, len(devices))
	for _, d := range devices {
		inRegistry[d.ID] = struct{}{}
	}
	for id, p := range prev.Positions {
		if _, ok := inRegistry[id]; !ok && opts.Eviction == EvictMissing {
			stats.Evicted++
			continue
		}
		positions[id] = p
	}

	for i, d := range devices {
		r := results[i]
		switch {
		case r.err != nil:
			stats.Failed++
			stats.FailedIDs = append(stats.FailedIDs, d.ID)
			_, retained := positions[d.ID]
			log.Warn().
				Err(r.err).
				Int64("device_id", d.ID).
				Int("status", client.StatusOf(r.err)).
				Bool("retained", retained).
				Msg("Position fetch failed")
		case r.pos == nil:
			stats.Absent++
			log.Debug().Int64("device_id", d.ID).Msg("No position reported")
		default:
			positions[d.ID] = *r.pos
			stats.Updated++
		}
	}

	end := opts.now()
	stats.Duration = end.Sub(start)

	return CycleResult{
		Snapshot: &model.Snapshot{
			Devices:   devices,
			Positions: positions,
			FetchedAt: end,
			Cycle:     prev.Cycle + 1,
			Loaded:    true,
			Stats:     stats,
		},
	}
}
