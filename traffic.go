package cgr

// file traffic.go holds a synthetic bundle workload generator.  Bundles
// arrive in a Poisson stream from a named source, each carrying a size
// drawn uniformly from a configured list and a destination drawn uniformly
// from a configured list.  Streams are drawn deterministically from the
// rngstream package seed, so a fixed generator creation order reproduces
// the same workload every run.

import (
	"fmt"
	"math"

	"github.com/iti/rngstream"
)

// number of digits of precision kept when advancing generated timestamps
const rdigits uint = 15

// A TrafficGen produces a reproducible stream of bundles originating at
// one source node
type TrafficGen struct {
	// Name labels the generator's random number stream
	Name string

	srcID int

	// mean bundle arrival rate, in bundles per second
	rate float64

	// candidate sizes (bytes) and destinations, sampled uniformly
	sizes []float64
	dests []int

	// deadline slack added to each bundle's creation time, 0.0 for no
	// deadline
	slack float64

	// the random number generator stream used by the generator
	rngstrm *rngstream.RngStream

	// creation time of the most recently generated bundle
	time float64
}

// CreateTrafficGen is a constructor for the TrafficGen
func CreateTrafficGen(name string, srcID int, rate float64, sizes []float64,
	dests []int, slack float64) (*TrafficGen, error) {

	if rate <= 0.0 {
		return nil, fmt.Errorf("traffic generator %s given non-positive rate %v", name, rate)
	}
	if len(sizes) == 0 || len(dests) == 0 {
		return nil, fmt.Errorf("traffic generator %s needs sizes and destinations", name)
	}

	tg := new(TrafficGen)
	tg.Name = name
	tg.srcID = srcID
	tg.rate = rate
	tg.sizes = sizes
	tg.dests = dests
	tg.slack = slack
	tg.rngstrm = rngstream.New(name)

	return tg, nil
}

// roundFloat rounds its input value to a specified number of digits of precision
func roundFloat(val float64, precision uint) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}

// expRV returns a sample of an exponentially distributed random number
// with the given rate
func expRV(u01, rate float64) float64 {
	return -1.0 * math.Log(1.0-u01) / rate
}

// NxtBundle advances the generator's clock by an exponentially distributed
// interarrival and returns the bundle created at that time
func (tg *TrafficGen) NxtBundle() *Bundle {
	u01 := tg.rngstrm.RandU01()
	tg.time = roundFloat(tg.time+expRV(u01, tg.rate), rdigits)

	sizeIdx := int(tg.rngstrm.RandU01() * float64(len(tg.sizes)))
	if sizeIdx == len(tg.sizes) {
		sizeIdx -= 1
	}
	destIdx := int(tg.rngstrm.RandU01() * float64(len(tg.dests)))
	if destIdx == len(tg.dests) {
		destIdx -= 1
	}

	deadline := 0.0
	if tg.slack > 0.0 {
		deadline = tg.time + tg.slack
	}

	return CreateBundle(tg.srcID, tg.dests[destIdx], tg.sizes[sizeIdx],
		tg.time, deadline, 0)
}

// Workload generates the next count bundles as a batch
func (tg *TrafficGen) Workload(count int) []*Bundle {
	bundles := make([]*Bundle, 0, count)
	for idx := 0; idx < count; idx++ {
		bundles = append(bundles, tg.NxtBundle())
	}

	return bundles
}
