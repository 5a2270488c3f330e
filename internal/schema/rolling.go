package schema

import "fmt"

// RollingCounter is a fixed-bucket approximate sliding-window sum. The
// bucket count, current head index and per-bucket resolution (in
// milliseconds) are bit-packed into one 32-bit word to keep the struct
// compact for per-node/per-group/per-window counters, mirroring the
// source's packing of res (21 bits), hd (5 bits) and n (6 bits).
//
// Bucket count n is chosen from the requested span: <=6s -> 4, <=32s -> 8,
// <=64s -> 16, else 32. The resolution must fit 21 bits: span/n < 2^21 ms
// (bounding the usable span at roughly 32 * 2^21 ms, about 18 hours).
type RollingCounter struct {
	Total        int64
	WindowStart  int64 // ms
	packed       uint32
	buckets      []int32
}

const (
	resBits = 21
	hdBits  = 5
	nBits   = 6

	resMask = (1 << resBits) - 1
	hdMask  = (1 << hdBits) - 1
	nMask   = (1 << nBits) - 1
)

// bucketCountFor returns the power-of-two bucket count for a span (ms).
func bucketCountFor(spanMS int64) int {
	switch {
	case spanMS <= 6000:
		return 4
	case spanMS <= 32000:
		return 8
	case spanMS <= 64000:
		return 16
	default:
		return 32
	}
}

// NewRollingCounter constructs a counter covering spanMS with the
// bucket count implied by bucketCountFor.
func NewRollingCounter(nowMS int64, spanMS int64) (*RollingCounter, error) {
	n := bucketCountFor(spanMS)
	res := spanMS / int64(n)
	if res <= 0 {
		res = 1
	}
	if res >= (1 << resBits) {
		return nil, fmt.Errorf("rolling counter resolution %d does not fit 21 bits for span %dms", res, spanMS)
	}
	rc := &RollingCounter{
		WindowStart: nowMS,
		buckets:     make([]int32, n),
	}
	rc.setPacked(uint32(res), 0, uint32(n))
	return rc, nil
}

func (rc *RollingCounter) setPacked(res, hd, n uint32) {
	rc.packed = (res & resMask) | ((hd & hdMask) << resBits) | ((n & nMask) << (resBits + hdBits))
}

func (rc *RollingCounter) res() int64 { return int64(rc.packed & resMask) }
func (rc *RollingCounter) hd() int    { return int((rc.packed >> resBits) & hdMask) }
func (rc *RollingCounter) n() int     { return int((rc.packed >> (resBits + hdBits)) & nMask) }

func (rc *RollingCounter) setHead(hd uint32) {
	rc.setPacked(uint32(rc.res()), hd, uint32(rc.n()))
}

// Span returns the total window span in milliseconds (res * n).
func (rc *RollingCounter) Span() int64 {
	return rc.res() * int64(rc.n())
}

// advance rotates the window so that nowMS falls within the live range,
// clearing buckets that have fallen out of the window. Buckets are
// coalesced: a quiet interval spanning the whole window zeros every
// bucket and resets total to 0, satisfying "after a quiet interval of
// duration S the total returns to 0."
func (rc *RollingCounter) advance(nowMS int64) {
	res := rc.res()
	n := int64(rc.n())
	elapsed := nowMS - rc.WindowStart
	if elapsed <= 0 {
		return
	}
	ticks := elapsed / res
	if ticks <= 0 {
		return
	}
	if ticks >= n {
		for i := range rc.buckets {
			rc.buckets[i] = 0
		}
		rc.Total = 0
		rc.setHead(0)
		rc.WindowStart = nowMS
		return
	}
	hd := rc.hd()
	for i := int64(0); i < ticks; i++ {
		hd = (hd + 1) % rc.n()
		rc.Total -= int64(rc.buckets[hd])
		rc.buckets[hd] = 0
	}
	rc.setHead(uint32(hd))
	rc.WindowStart += ticks * res
}

// Record adds delta to the current bucket at time nowMS, rotating the
// window first if needed.
func (rc *RollingCounter) Record(nowMS int64, delta int32) {
	rc.advance(nowMS)
	hd := rc.hd()
	rc.buckets[hd] += delta
	rc.Total += int64(delta)
}

// Sum returns the sum of all live buckets. Always equals Total by
// construction; exposed for the invariant that total == sum(buckets).
func (rc *RollingCounter) Sum() int64 {
	var s int64
	for _, b := range rc.buckets {
		s += int64(b)
	}
	return s
}

// BucketCount returns n, the number of buckets.
func (rc *RollingCounter) BucketCount() int { return rc.n() }

// Resolution returns the per-bucket resolution in milliseconds.
func (rc *RollingCounter) Resolution() int64 { return rc.res() }
