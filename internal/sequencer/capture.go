package sequencer

import "context"

// Capture is a SoundEngine that records triggers instead of playing them.
// It is always ready and its clock stands still at Clock.
type Capture struct {
	Clock    float64
	Triggers []Trigger
}

func (c *Capture) Unlock(context.Context) error { return nil }
func (c *Capture) Ready() bool                  { return true }
func (c *Capture) Now() float64                 { return c.Clock }

func (c *Capture) ScheduleTrigger(t Trigger) error {
	c.Triggers = append(c.Triggers, t)
	return nil
}

// Reset drops recorded triggers.
func (c *Capture) Reset() { c.Triggers = c.Triggers[:0] }
