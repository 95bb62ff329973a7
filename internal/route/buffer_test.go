package route

import (
	"testing"

	"github.com/example/graborgan/internal/models"
)

func wp(lat, lng float64) models.Waypoint { return models.Waypoint{Lat: lat, Lng: lng} }

func testPoints(n int) []models.Waypoint {
	pts := make([]models.Waypoint, n)
	for i := range pts {
		pts[i] = wp(float64(i), float64(100+i))
	}
	return pts
}

func TestBufferAdvanceStopsAtLast(t *testing.T) {
	b := NewBuffer()
	b.Load(testPoints(3))

	p, more := b.Advance()
	if !more {
		t.Fatalf("expected more after first advance")
	}
	if p != wp(1, 101) {
		t.Fatalf("unexpected point %+v", p)
	}

	p, more = b.Advance()
	if more {
		t.Fatalf("expected exhaustion on reaching last point")
	}
	if p != wp(2, 102) {
		t.Fatalf("unexpected last point %+v", p)
	}

	// further advances stay parked on the last point
	again, more := b.Advance()
	if more || again != p {
		t.Fatalf("advance past end moved: %+v more=%v", again, more)
	}
	if !b.AtEnd() {
		t.Fatalf("expected AtEnd")
	}
}

func TestBufferAdvanceEmpty(t *testing.T) {
	b := NewBuffer()
	if _, more := b.Advance(); more {
		t.Fatalf("empty buffer should not advance")
	}
	if _, ok := b.Current(); ok {
		t.Fatalf("empty buffer has no current point")
	}
}

func TestBufferConsumeTraveled(t *testing.T) {
	b := NewBuffer()
	b.Load(testPoints(5))
	b.Advance()
	b.Advance() // index 2

	b.ConsumeTraveled(b.Index())
	if b.Len() != 3 {
		t.Fatalf("expected 3 points after consume, got %d", b.Len())
	}
	if b.Index() != 0 {
		t.Fatalf("expected index rebased to 0, got %d", b.Index())
	}
	cur, _ := b.Current()
	if cur != wp(2, 102) {
		t.Fatalf("current point moved during consume: %+v", cur)
	}
}

func TestBufferConsumeNeverEmpties(t *testing.T) {
	b := NewBuffer()
	b.Load(testPoints(4))
	b.ConsumeTraveled(99)
	if b.Len() != 1 {
		t.Fatalf("expected 1 surviving point, got %d", b.Len())
	}
	cur, ok := b.Current()
	if !ok || cur != wp(3, 103) {
		t.Fatalf("expected the last point to survive, got %+v ok=%v", cur, ok)
	}
}

func TestBufferSplicePrependsPosition(t *testing.T) {
	b := NewBuffer()
	b.Load(testPoints(5))
	b.Advance()

	here := wp(50, 150)
	fresh := testPoints(3)
	b.SpliceNewRoute(here, fresh)

	if b.Len() != 4 {
		t.Fatalf("expected 4 points after splice, got %d", b.Len())
	}
	cur, _ := b.Current()
	if cur != here {
		t.Fatalf("splice should start at current position, got %+v", cur)
	}
	if p, more := b.Advance(); !more || p != fresh[0] {
		t.Fatalf("expected first fresh waypoint next, got %+v more=%v", p, more)
	}
}

func TestBufferReset(t *testing.T) {
	b := NewBuffer()
	b.Load(testPoints(3))
	b.Advance()
	b.Advance()
	b.Reset()
	if b.Index() != 0 {
		t.Fatalf("reset should rewind index, got %d", b.Index())
	}
	if b.Len() != 3 {
		t.Fatalf("reset must not drop points, got %d", b.Len())
	}
}

func TestProgressMidpoint(t *testing.T) {
	start := wp(0, 0)
	end := wp(0, 10)
	if got := Progress(wp(0, 5), start, end); got != 50 {
		t.Fatalf("expected 50, got %d", got)
	}
}

func TestProgressFloors(t *testing.T) {
	start := wp(0, 0)
	end := wp(0, 3)
	// 1/3 of the way is 33.33..., floored to 33
	if got := Progress(wp(0, 1), start, end); got != 33 {
		t.Fatalf("expected 33, got %d", got)
	}
}

func TestProgressClampsAt100(t *testing.T) {
	start := wp(0, 0)
	end := wp(0, 1)
	if got := Progress(wp(0, 2), start, end); got != 100 {
		t.Fatalf("overshoot should clamp to 100, got %d", got)
	}
}

func TestProgressZeroSpan(t *testing.T) {
	p := wp(1.3, 103.8)
	if got := Progress(wp(5, 5), p, p); got != 0 {
		t.Fatalf("coincident endpoints should read 0, got %d", got)
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// Changi Airport to Tuas is roughly 40km as the crow flies
	d := Haversine(wp(1.3644, 103.9915), wp(1.2966, 103.6361))
	if d < 35000 || d > 45000 {
		t.Fatalf("implausible distance %f", d)
	}
}
