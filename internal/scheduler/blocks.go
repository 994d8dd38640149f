package scheduler

// BlockedMass is an administrator declared blackout. A nil Times blocks the
// whole date; otherwise only the listed times are blocked.
type BlockedMass struct {
	ID     string
	Date   Date
	Times  []TimeOfDay
	Reason string
}

// WholeDay reports whether the block covers every time on its date.
func (b BlockedMass) WholeDay() bool {
	return b.Times == nil
}

// Covers reports whether the block applies to t on its date.
func (b BlockedMass) Covers(t TimeOfDay) bool {
	if b.WholeDay() {
		return true
	}
	for _, blocked := range b.Times {
		if blocked == t {
			return true
		}
	}
	return false
}

// BlockOverlay answers whether a date and time is vetoed by any block.
// A nil *BlockOverlay blocks nothing.
type BlockOverlay struct {
	byDate map[Date][]BlockedMass
}

// NewBlockOverlay indexes blocks by date.
func NewBlockOverlay(blocks []BlockedMass) *BlockOverlay {
	overlay := &BlockOverlay{byDate: make(map[Date][]BlockedMass)}
	for _, block := range blocks {
		overlay.byDate[block.Date] = append(overlay.byDate[block.Date], block)
	}
	return overlay
}

// IsBlocked reports whether date at t is blocked.
func (o *BlockOverlay) IsBlocked(date Date, t TimeOfDay) bool {
	_, ok := o.Lookup(date, t)
	return ok
}

// Lookup returns the first block covering date at t, whole-day blocks first.
func (o *BlockOverlay) Lookup(date Date, t TimeOfDay) (BlockedMass, bool) {
	if o == nil {
		return BlockedMass{}, false
	}
	blocks := o.byDate[date]
	for _, block := range blocks {
		if block.WholeDay() {
			return block, true
		}
	}
	for _, block := range blocks {
		if block.Covers(t) {
			return block, true
		}
	}
	return BlockedMass{}, false
}

// DateBlocked reports whether the whole date is blocked.
func (o *BlockOverlay) DateBlocked(date Date) bool {
	if o == nil {
		return false
	}
	for _, block := range o.byDate[date] {
		if block.WholeDay() {
			return true
		}
	}
	return false
}
