package driver

import (
	"time"

	"github.com/go-co-op/gocron/v2"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
)

// housekeepingInterval is deliberately coarse: none of this work is
// latency-sensitive, so it rides gocron's scheduler rather than the
// reactor's 100ms poll timer.
const housekeepingInterval = 30 * time.Second

// startHousekeeping wires the driver's coarse background maintenance:
// one job that sweeps expired tag-cache entries. Returns nil (no-op
// Close) if the scheduler fails to start, which is not fatal to the
// driver's core duties.
func (d *Driver) startHousekeeping() gocron.Scheduler {
	s, err := gocron.NewScheduler()
	if err != nil {
		cclog.Warnf("[DRIVER]> %s: housekeeping scheduler unavailable: %v", d.name, err)
		return nil
	}
	_, err = s.NewJob(
		gocron.DurationJob(housekeepingInterval),
		gocron.NewTask(func() {
			d.cache.Sweep()
		}),
	)
	if err != nil {
		cclog.Warnf("[DRIVER]> %s: could not schedule cache sweep: %v", d.name, err)
	}
	s.Start()
	return s
}
