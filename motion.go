package pickplace

import (
	"math"

	"github.com/golang/geo/r3"
)

// motionCommand linearly interpolates an end-effector position between two
// points over a fixed number of frames. Orientation is held constant; the
// engine only translates the end effector mid-move. At most one command is
// active at a time, owned by whichever phase created it.
type motionCommand struct {
	start    r3.Vector
	end      r3.Vector
	duration int
	frame    int
	progress float64 // always frame/duration, never accumulated
	active   bool
}

// newMotionCommand computes duration = ceil(distance/speed) frames, minimum 1.
// speed is in meters per frame.
func newMotionCommand(start, end r3.Vector, speed float64) *motionCommand {
	dist := end.Sub(start).Norm()
	duration := 1
	if speed > 0 {
		duration = int(math.Ceil(dist / speed))
		if duration < 1 {
			duration = 1
		}
	}
	return &motionCommand{
		start:    start,
		end:      end,
		duration: duration,
		active:   true,
	}
}

// Advance moves progress forward one frame and returns the interpolated
// position. Progress is derived from an integer frame count so a move takes
// exactly duration frames; never extrapolates past 1.
func (m *motionCommand) Advance() r3.Vector {
	if !m.active {
		return m.end
	}
	m.frame++
	m.progress = float64(m.frame) / float64(m.duration)
	if m.frame >= m.duration {
		m.progress = 1.0
		m.active = false
	}
	return m.Current()
}

// Current returns the position at the present progress fraction.
func (m *motionCommand) Current() r3.Vector {
	delta := m.end.Sub(m.start)
	return m.start.Add(delta.Mul(m.progress))
}

func (m *motionCommand) Active() bool {
	return m.active
}

func (m *motionCommand) Complete() bool {
	return m.progress >= 1.0
}

// Stop abandons the command without completing it.
func (m *motionCommand) Stop() {
	m.active = false
}
