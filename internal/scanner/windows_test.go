package scanner

import (
	"strconv"
	"testing"

	"bactopo/internal/domain"
)

// priorWithDevices builds a prior-scan graph knowing the given instances.
func priorWithDevices(instances ...uint32) *domain.Graph {
	g := domain.NewGraph()
	for _, i := range instances {
		g.Ensure(domain.KindDevice, strconv.FormatUint(uint64(i), 10))
	}
	return g
}

func assertTiling(t *testing.T, windows []Window, low, high uint32) {
	t.Helper()
	if len(windows) == 0 {
		t.Fatal("expected at least one window")
	}
	if windows[0].Low != low {
		t.Errorf("first window starts at %d, expected %d", windows[0].Low, low)
	}
	if windows[len(windows)-1].High != high {
		t.Errorf("last window ends at %d, expected %d", windows[len(windows)-1].High, high)
	}
	for i, w := range windows {
		if w.High < w.Low {
			t.Errorf("window %d is inverted: [%d, %d]", i, w.Low, w.High)
		}
		if i > 0 && w.Low != windows[i-1].High+1 {
			t.Errorf("window %d starts at %d, expected %d (no gaps, no overlaps)",
				i, w.Low, windows[i-1].High+1)
		}
	}
}

func TestPlanWindowsTiling(t *testing.T) {
	cases := []struct {
		name                string
		low, high           uint32
		fullStep, emptyStep uint32
	}{
		{"single window range", 0, 500, 100, 1000},
		{"exact multiple", 0, 4000, 100, 1000},
		{"ragged tail", 0, 4194303, 100, 1000},
		{"narrow range", 100, 120, 5, 7},
		{"one instance", 42, 42, 1, 1},
		{"step of one", 0, 10, 1, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			windows := planWindows(nil, tc.low, tc.high, tc.fullStep, tc.emptyStep)
			assertTiling(t, windows, tc.low, tc.high)
		})
	}

	t.Run("dense prior graph still tiles exactly", func(t *testing.T) {
		instances := make([]uint32, 0, 300)
		for i := uint32(0); i < 300; i++ {
			instances = append(instances, i*3)
		}
		prior := priorWithDevices(instances...)
		windows := planWindows(prior, 0, 2000, 10, 500)
		assertTiling(t, windows, 0, 2000)
	})

	t.Run("inverted range yields no windows", func(t *testing.T) {
		if windows := planWindows(nil, 100, 50, 10, 100); windows != nil {
			t.Errorf("expected nil, got %v", windows)
		}
	})
}

func TestWindowEndDensity(t *testing.T) {
	t.Run("empty prior graph runs the full step", func(t *testing.T) {
		end := windowEnd(nil, 1000, 4194303, 100, 1000)
		if end != 2000 {
			t.Errorf("expected 2000, got %d", end)
		}
	})

	t.Run("full step clamps to the high limit", func(t *testing.T) {
		end := windowEnd(nil, 4194000, 4194303, 100, 1000)
		if end != 4194303 {
			t.Errorf("expected 4194303, got %d", end)
		}
	})

	t.Run("dense region truncates the window", func(t *testing.T) {
		// 100 known devices at 0..99: the window must stop before the
		// full 1000-instance step.
		instances := make([]uint32, 100)
		for i := range instances {
			instances[i] = uint32(i)
		}
		prior := priorWithDevices(instances...)

		end := windowEnd(prior, 0, 4194303, 100, 1000)
		if end >= 1000 {
			t.Errorf("expected a truncated window, got end %d", end)
		}
		if end != 99 {
			t.Errorf("expected truncation at the 100th known device (99), got %d", end)
		}
	})

	t.Run("fewer known devices than the full step does not truncate", func(t *testing.T) {
		prior := priorWithDevices(1, 2, 3)
		end := windowEnd(prior, 0, 4194303, 100, 1000)
		if end != 1000 {
			t.Errorf("expected 1000, got %d", end)
		}
	})

	t.Run("known BBMDs count as devices", func(t *testing.T) {
		g := domain.NewGraph()
		for i := 0; i < 100; i++ {
			g.Ensure(domain.KindBBMD, strconv.Itoa(i))
		}
		end := windowEnd(g, 0, 4194303, 100, 1000)
		if end != 99 {
			t.Errorf("expected truncation at 99, got %d", end)
		}
	})
}
