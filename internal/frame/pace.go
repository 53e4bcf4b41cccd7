package frame

import (
	"time"

	"github.com/Velaseriat/vp-link/internal/logger"
)

// Pacer decimates the input frame stream and assigns each surviving
// frame a gap-free presentation timestamp on the output timeline. It is
// driven from the single frame-processing goroutine and is not
// goroutine-safe on its own.
type Pacer struct {
	keepEvery uint64
	outputFPS int
	period    time.Duration

	inputs  uint64
	emitted uint64
}

// NewPacer derives the output rate from the source rate and the skip
// count: every (frameSkip+1)-th input frame survives.
func NewPacer(sourceFPS, frameSkip int) *Pacer {
	keepEvery := frameSkip + 1
	if keepEvery < 1 {
		keepEvery = 1
	}
	if sourceFPS < 1 {
		sourceFPS = 1
	}
	outputFPS := sourceFPS / keepEvery
	if outputFPS < 1 {
		outputFPS = 1
	}
	if sourceFPS%keepEvery != 0 {
		logger.WithComponent("pacer").Warn().
			Int("source_fps", sourceFPS).
			Int("keep_every", keepEvery).
			Int("output_fps", outputFPS).
			Msg("Source rate not divisible by keep interval, output pacing is approximate")
	}
	return &Pacer{
		keepEvery: uint64(keepEvery),
		outputFPS: outputFPS,
		period:    time.Second / time.Duration(outputFPS),
	}
}

// Admit accounts for one input frame. When the frame survives
// decimation it returns ok=true along with the presentation timestamp
// and duration to stamp on it.
func (p *Pacer) Admit() (pts, duration time.Duration, ok bool) {
	idx := p.inputs
	p.inputs++
	if idx%p.keepEvery != 0 {
		return 0, 0, false
	}
	pts = time.Duration(p.emitted) * p.period
	p.emitted++
	return pts, p.period, true
}

// OutputFPS returns the derived output frame rate.
func (p *Pacer) OutputFPS() int { return p.outputFPS }

// Period returns the output frame interval.
func (p *Pacer) Period() time.Duration { return p.period }

// Counts returns how many input frames were seen and how many survived.
func (p *Pacer) Counts() (inputs, emitted uint64) {
	return p.inputs, p.emitted
}
