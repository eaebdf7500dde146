package scanner

import (
	"strconv"

	"bactopo/internal/domain"
)

// Window is one inclusive Who-Is instance range.
type Window struct {
	Low  uint32
	High uint32
}

// knownDevice reports whether a prior scan recorded a device (or BBMD,
// which is a device) with the given instance number.
func knownDevice(prev *domain.Graph, instance uint32) bool {
	if prev == nil {
		return false
	}
	id := strconv.FormatUint(uint64(instance), 10)
	return prev.HasNode(domain.MakeKey(domain.KindDevice, id)) ||
		prev.HasNode(domain.MakeKey(domain.KindBBMD, id))
}

// windowEnd returns the inclusive end of the window starting at cursor.
// The window runs the full empty step unless the prior graph already
// knows fullStep devices before that point, in which case it is
// truncated there: dense regions get small windows so fewer I-Am
// responses collide.
func windowEnd(prev *domain.Graph, cursor, high, fullStep, emptyStep uint32) uint32 {
	end := cursor + emptyStep
	if end > high || end < cursor { // clamp, guarding overflow
		end = high
	}

	known := uint32(0)
	for pos := cursor; pos < end; pos++ {
		if knownDevice(prev, pos) {
			known++
			if known >= fullStep {
				return pos
			}
		}
	}
	return end
}

// planWindows tiles [low, high] into the Who-Is windows one scan will
// issue. Consecutive windows share no instance and leave no gap; the
// last window always ends at high.
func planWindows(prev *domain.Graph, low, high, fullStep, emptyStep uint32) []Window {
	if high < low {
		return nil
	}
	if emptyStep == 0 {
		emptyStep = 1
	}
	if fullStep == 0 {
		fullStep = 1
	}

	var windows []Window
	cursor := low
	for {
		end := windowEnd(prev, cursor, high, fullStep, emptyStep)
		windows = append(windows, Window{Low: cursor, High: end})
		if end >= high {
			return windows
		}
		cursor = end + 1
	}
}
