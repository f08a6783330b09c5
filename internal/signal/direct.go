package signal

// Region is the shared backing store for channels declared with YAML
// direct_index (§4.1): a single contiguous allocation sliced into
// StripeSize-byte stripes, one stripe per participating channel. Within a
// channel's stripe(s), scalar signals are packed tightly at 8 bytes
// (sizeof float64) apart — the worked example in spec §8 scenario 6
// ("channel two signal e (index 1) writes at byte offset 72+8") only
// holds under this two-level scheme: a channel-granularity stripe offset,
// then flat per-signal addressing within it.
type Region struct {
	stripes []stripe
	next    int // next free stripe index
}

// stripe is one StripeSize-byte slot of the region, held as packed float64
// scalars only; binary buffers are not stored in the region.
type stripe struct {
	doubles [signalsPerStripe]float64
}

const (
	// StripeSize is the fixed byte stride per channel-stripe (§4.1: "72-byte
	// stripes (double scalar + pointer + 2x uint32 + alignment padding)").
	StripeSize = 72
	// signalsPerStripe is how many packed 8-byte doubles fit in one stripe;
	// channels with more scalars than this span multiple contiguous stripes.
	signalsPerStripe = StripeSize / 8
)

func NewRegion(stripeCount int) *Region {
	return &Region{stripes: make([]stripe, stripeCount)}
}

// Reserve hands out stripeCount contiguous stripes and returns the byte
// offset of the first one.
func (r *Region) Reserve(stripeCount int) (byteOffset int) {
	byteOffset = r.next * StripeSize
	r.next += stripeCount
	if r.next > len(r.stripes) {
		grown := make([]stripe, r.next)
		copy(grown, r.stripes)
		r.stripes = grown
	}
	return byteOffset
}

// ReadAt and WriteAt address the region directly by byte offset, independent
// of any one channel's view — any channel sharing this *Region observes the
// same underlying storage (spec §8 scenario 6).
func (r *Region) ReadAt(byteOffset int) float64 {
	return r.stripes[byteOffset/StripeSize].doubles[(byteOffset%StripeSize)/8]
}

func (r *Region) WriteAt(byteOffset int, val float64) {
	r.stripes[byteOffset/StripeSize].doubles[(byteOffset%StripeSize)/8] = val
}

func stripesNeeded(signalCount int) int {
	if signalCount == 0 {
		return 1
	}
	return (signalCount + signalsPerStripe - 1) / signalsPerStripe
}

// BindDirect attaches channel c to region, reserving enough stripes for
// its current signal count. Subsequent GetOrCreate calls that grow the
// channel beyond the reserved capacity fall back to the ordinary map
// (direct addressing is a fast-path optimization, not a hard limit).
func (c *Channel) BindDirect(region *Region) {
	c.RefreshIndex()
	n := stripesNeeded(len(c.index))
	c.direct = region
	c.directCount = n
	c.directOffset = region.Reserve(n)
	c.syncDirect()
}

// syncDirect copies the channel's current scalar values into its reserved
// stripes; BindDirect calls it once when the channel is attached.
func (c *Channel) syncDirect() {
	if c.direct == nil {
		return
	}
	base := c.directOffset / StripeSize
	for i, v := range c.index {
		stripeIdx := base + i/signalsPerStripe
		slot := i % signalsPerStripe
		if stripeIdx < len(c.direct.stripes) {
			c.direct.stripes[stripeIdx].doubles[slot] = v.Val
		}
	}
}

// DirectByteOffset returns the byte offset of signal index i within the
// shared region: offset + i*8 (flat packing within the channel's stripes).
func (c *Channel) DirectByteOffset(i int) int { return c.directOffset + i*8 }

// ReadDirect reads the scalar value at signal index i straight from the
// shared region, bypassing the name-indexed map.
func (c *Channel) ReadDirect(i int) float64 {
	return c.direct.ReadAt(c.DirectByteOffset(i))
}

// WriteDirect writes i, syncing both the shared region and the channel's
// own SignalValue (so name-indexed lookups via another channel sharing the
// region, e.g. scenario 6's "reading via channel one's map", observe it).
func (c *Channel) WriteDirect(i int, val float64) {
	c.direct.WriteAt(c.DirectByteOffset(i), val)
	c.index[i].Val = val
}
