package driver

import (
	"context"
	"fmt"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"

	"github.com/neuron-io/broker/internal/envelope"
	"github.com/neuron-io/broker/internal/schema"
)

// writeJob is one queued write-group request awaiting its turn through
// the rate limiter.
type writeJob struct {
	group  string
	values []envelope.TagValuePair
}

// WriteTags validates that every tag in the batch exists and carries
// the WRITE attribute, then enqueues the job for async completion via
// the plugin's write-response path (spec §4.6: writes never block the
// caller on device I/O). A full queue reports back-pressure immediately
// rather than blocking the control-plane goroutine.
func (d *Driver) WriteTags(group string, values []envelope.TagValuePair) error {
	g, ok := d.GetGroup(group)
	if !ok {
		return fmt.Errorf("GROUP_NOT_FOUND")
	}
	for _, v := range values {
		tg, ok := g.Get(v.Tag)
		if !ok {
			return fmt.Errorf("TAG_NOT_FOUND")
		}
		if !tg.Attrs.Has(schema.AttrWrite) {
			return fmt.Errorf("TAG_NOT_WRITABLE")
		}
	}

	job := writeJob{group: group, values: values}
	select {
	case d.writeQueue <- job:
		return nil
	default:
		d.metrics.Update("writes_failed", nowMillis(), 1)
		return fmt.Errorf("WRITE_QUEUE_FULL")
	}
}

// drainWrites pulls jobs off the write queue at the limiter's rate and
// hands each to the plugin. Exits once stopWriter is closed, having
// drained nothing further (in-flight plugin calls are not cancelled).
func (d *Driver) drainWrites() {
	defer close(d.writerDone)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-d.stopWriter
		cancel()
	}()
	for {
		select {
		case <-d.stopWriter:
			return
		case job := <-d.writeQueue:
			if err := d.limiter.Wait(ctx); err != nil {
				return
			}
			if err := d.plugin.WriteGroup(d.name, job.group, job.values); err != nil {
				cclog.Warnf("[DRIVER]> %s/%s: write failed: %v", d.name, job.group, err)
				d.metrics.Update("writes_failed", nowMillis(), 1)
				continue
			}
			d.metrics.Update("writes_ok", nowMillis(), 1)
		}
	}
}
