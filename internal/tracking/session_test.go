package tracking

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/example/graborgan/internal/models"
)

// fakeGeo satisfies geoclient.Geo without any network. The tick loop fires
// deviation checks from goroutines, so the counters are mutex-guarded.
// Deviation only triggers when the reported position equals deviateAt,
// which keeps background checks from the ticker inert.
type fakeGeo struct {
	routes    map[string][]models.Waypoint
	geocode   map[string]models.Waypoint
	deviateAt *models.Waypoint
	devErr    error
	newRoute  string
	routeErr  error

	mu        sync.Mutex
	devCalls  int
	routeHits int
}

func (f *fakeGeo) DecodePolyline(ctx context.Context, encoded string) ([]models.Waypoint, error) {
	pts, ok := f.routes[encoded]
	if !ok {
		return nil, errors.New("unknown polyline")
	}
	return pts, nil
}

func (f *fakeGeo) CheckDeviation(ctx context.Context, encodedRoute string, pos models.Waypoint) (bool, error) {
	f.mu.Lock()
	f.devCalls++
	f.mu.Unlock()
	if f.devErr != nil {
		return false, f.devErr
	}
	return f.deviateAt != nil && pos == *f.deviateAt, nil
}

func (f *fakeGeo) RequestNewRoute(ctx context.Context, origin, destination models.Waypoint) (string, error) {
	f.mu.Lock()
	f.routeHits++
	f.mu.Unlock()
	if f.routeErr != nil {
		return "", f.routeErr
	}
	return f.newRoute, nil
}

func (f *fakeGeo) routeRequests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.routeHits
}

func (f *fakeGeo) AddressToCoordinates(ctx context.Context, address string) (*models.Waypoint, error) {
	wp, ok := f.geocode[address]
	if !ok {
		return nil, nil
	}
	return &wp, nil
}

type captureSink struct {
	states []models.DriverState
}

func (c *captureSink) Publish(orderID string, st models.DriverState) {
	c.states = append(c.states, st)
}

func linePoints(n int, from, to models.Waypoint) []models.Waypoint {
	pts := make([]models.Waypoint, n)
	for i := range pts {
		t := float64(i) / float64(n-1)
		pts[i] = models.Waypoint{
			Lat: from.Lat + (to.Lat-from.Lat)*t,
			Lng: from.Lng + (to.Lng-from.Lng)*t,
		}
	}
	pts[0] = from
	pts[n-1] = to
	return pts
}

var (
	airportHub  = models.Waypoint{Lat: 1.3551, Lng: 103.9849}
	generalHosp = models.Waypoint{Lat: 1.3232, Lng: 103.8463}
)

func testDelivery() models.Delivery {
	return models.Delivery{
		OrderID:     "order-1",
		Pickup:      "Changi Transplant Hub",
		Destination: "Singapore General Hospital",
		DriverID:    "drv-9",
		Polyline:    "poly-main",
		Status:      models.DeliveryAssigned,
	}
}

func newTestSession(t *testing.T, geo *fakeGeo) *Session {
	t.Helper()
	cfg := Config{TickPeriod: time.Second, BannerWindow: 3 * time.Second}
	s, err := NewSession(context.Background(), geo, slog.Default(), cfg, testDelivery())
	if err != nil {
		t.Fatalf("session setup failed: %v", err)
	}
	t.Cleanup(s.Dispose)
	return s
}

func defaultFakeGeo() *fakeGeo {
	return &fakeGeo{
		routes: map[string][]models.Waypoint{
			"poly-main": linePoints(50, airportHub, generalHosp),
		},
		geocode: map[string]models.Waypoint{
			"Changi Transplant Hub":      airportHub,
			"Singapore General Hospital": generalHosp,
		},
	}
}

func TestNewSessionInitialState(t *testing.T) {
	geo := defaultFakeGeo()
	s := newTestSession(t, geo)

	st := s.Snapshot()
	if st.Status != models.DriverReady {
		t.Fatalf("expected Ready, got %s", st.Status)
	}
	if st.Name != "drv-9" {
		t.Fatalf("expected driver name, got %q", st.Name)
	}
	if st.Location != airportHub {
		t.Fatalf("marker should start at the first waypoint, got %+v", st.Location)
	}
	if st.Progress != 0 {
		t.Fatalf("expected progress 0, got %d", st.Progress)
	}
	if len(s.RoutePoints()) != 50 {
		t.Fatalf("expected full route buffered, got %d", len(s.RoutePoints()))
	}
}

func TestNewSessionUnassignedDriver(t *testing.T) {
	geo := defaultFakeGeo()
	d := testDelivery()
	d.DriverID = ""
	s, err := NewSession(context.Background(), geo, slog.Default(), Config{TickPeriod: time.Second}, d)
	if err != nil {
		t.Fatalf("session setup failed: %v", err)
	}
	defer s.Dispose()
	if got := s.Snapshot().Name; got != "Unassigned" {
		t.Fatalf("expected Unassigned, got %q", got)
	}
}

func TestNewSessionDecodeFailureSurfaces(t *testing.T) {
	geo := defaultFakeGeo()
	d := testDelivery()
	d.Polyline = "garbage"
	if _, err := NewSession(context.Background(), geo, slog.Default(), Config{TickPeriod: time.Second}, d); err == nil {
		t.Fatalf("expected setup error for undecodable polyline")
	}
}

func TestNewSessionGeocodeMissFallsBackToRoute(t *testing.T) {
	geo := defaultFakeGeo()
	geo.geocode = nil
	s := newTestSession(t, geo)
	origin, destination := s.Endpoints()
	if origin != airportHub || destination != generalHosp {
		t.Fatalf("expected route endpoints as fallback, got %+v %+v", origin, destination)
	}
}

// drain drives the tick loop directly, bypassing the wall-clock ticker.
func drain(t *testing.T, s *Session, max int) int {
	t.Helper()
	s.mu.Lock()
	s.state.Status = models.DriverDelivering
	s.mu.Unlock()
	ticks := 0
	for ; ticks < max; ticks++ {
		if !s.tick() {
			ticks++
			break
		}
	}
	return ticks
}

func TestSessionRunsToDelivered(t *testing.T) {
	geo := defaultFakeGeo()
	s := newTestSession(t, geo)
	sink := &captureSink{}
	s.Subscribe(sink)

	ticks := drain(t, s, 200)
	if ticks != 49 {
		t.Fatalf("50-point route should finish in 49 ticks, took %d", ticks)
	}

	st := s.Snapshot()
	if st.Status != models.DriverDelivered {
		t.Fatalf("expected Delivered, got %s", st.Status)
	}
	if st.Progress != 100 {
		t.Fatalf("expected progress 100, got %d", st.Progress)
	}
	if st.Location != generalHosp {
		t.Fatalf("marker should end at the destination, got %+v", st.Location)
	}
	if len(sink.states) != ticks {
		t.Fatalf("sink should see every tick: got %d want %d", len(sink.states), ticks)
	}
	last := sink.states[len(sink.states)-1]
	if last.Status != models.DriverDelivered {
		t.Fatalf("final published state should be Delivered, got %s", last.Status)
	}
	// the trail shrinks behind the vehicle down to the final point
	if got := len(s.RoutePoints()); got != 1 {
		t.Fatalf("expected 1 remaining route point, got %d", got)
	}
}

func TestSessionProgressMonotonicOnStraightLine(t *testing.T) {
	geo := defaultFakeGeo()
	s := newTestSession(t, geo)
	sink := &captureSink{}
	s.Subscribe(sink)
	drain(t, s, 200)

	prev := -1
	for _, st := range sink.states {
		if st.Progress < prev {
			t.Fatalf("progress regressed from %d to %d without a reroute", prev, st.Progress)
		}
		prev = st.Progress
	}
}

func TestSessionRerouteSplicesBuffer(t *testing.T) {
	offRoute := models.Waypoint{Lat: 1.34, Lng: 103.92}
	geo := defaultFakeGeo()
	geo.deviateAt = &offRoute
	geo.newRoute = "poly-recalc"
	geo.routes["poly-recalc"] = linePoints(30, models.Waypoint{Lat: 1.34, Lng: 103.9}, generalHosp)
	s := newTestSession(t, geo)

	s.mu.Lock()
	s.state.Status = models.DriverDelivering
	s.mu.Unlock()
	for i := 0; i < 10; i++ {
		s.tick()
	}

	// run the check synchronously for determinism
	s.checkDeviation("poly-main", offRoute)

	if got := len(s.RoutePoints()); got != 31 {
		t.Fatalf("expected spliced buffer of 31 points, got %d", got)
	}
	first := s.RoutePoints()[0]
	if first != offRoute {
		t.Fatalf("spliced route must reconnect from the vehicle, got %+v want %+v", first, offRoute)
	}
	if !s.Snapshot().DeviationActive {
		t.Fatalf("deviation banner should be active right after a reroute")
	}
	if got := geo.routeRequests(); got != 1 {
		t.Fatalf("expected one route request, got %d", got)
	}

	// the loop keeps ticking on the fresh route
	if !s.tick() {
		t.Fatalf("tick should continue after a reroute")
	}
}

func TestSessionDeviationCheckFailOpen(t *testing.T) {
	geo := defaultFakeGeo()
	geo.devErr = errors.New("geo service down")
	s := newTestSession(t, geo)

	s.mu.Lock()
	s.state.Status = models.DriverDelivering
	s.mu.Unlock()
	s.tick()
	before := len(s.RoutePoints())

	s.checkDeviation("poly-main", s.Snapshot().Location)

	if got := len(s.RoutePoints()); got != before {
		t.Fatalf("failed check must not touch the route: %d -> %d", before, got)
	}
	if s.Snapshot().DeviationActive {
		t.Fatalf("failed check must not raise the banner")
	}
	if !s.tick() {
		t.Fatalf("animation must keep running after a failed check")
	}
}

func TestSessionRerouteFailureKeepsRoute(t *testing.T) {
	offRoute := models.Waypoint{Lat: 1.34, Lng: 103.92}
	geo := defaultFakeGeo()
	geo.deviateAt = &offRoute
	geo.routeErr = errors.New("routing service down")
	s := newTestSession(t, geo)

	s.mu.Lock()
	s.state.Status = models.DriverDelivering
	s.mu.Unlock()
	s.tick()
	before := len(s.RoutePoints())

	s.checkDeviation("poly-main", offRoute)

	if got := len(s.RoutePoints()); got != before {
		t.Fatalf("failed reroute must keep the current route: %d -> %d", before, got)
	}
	// phase must recover so later deviations can still reroute
	s.mu.Lock()
	ph := s.phase
	s.mu.Unlock()
	if ph != phaseTracking {
		t.Fatalf("phase stuck in rerouting after failure")
	}
}

func TestSessionPauseAndReset(t *testing.T) {
	geo := defaultFakeGeo()
	s := newTestSession(t, geo)

	s.mu.Lock()
	s.state.Status = models.DriverDelivering
	s.mu.Unlock()
	for i := 0; i < 5; i++ {
		s.tick()
	}

	s.Pause()
	if got := s.Snapshot().Status; got != models.DriverPaused {
		t.Fatalf("expected Paused, got %s", got)
	}
	if s.Snapshot().Progress == 0 {
		t.Fatalf("pause must retain progress")
	}

	s.Reset()
	st := s.Snapshot()
	if st.Status != models.DriverReady {
		t.Fatalf("expected Ready after reset, got %s", st.Status)
	}
	if st.Progress != 0 {
		t.Fatalf("reset must zero progress, got %d", st.Progress)
	}
	if st.DeviationActive {
		t.Fatalf("reset must clear the deviation banner")
	}
	if st.Location != s.RoutePoints()[0] {
		t.Fatalf("reset must park the marker on the first buffered waypoint")
	}
}

func TestSessionStartStartsTicker(t *testing.T) {
	geo := defaultFakeGeo()
	s, err := NewSession(context.Background(), geo, slog.Default(), Config{
		TickPeriod:   5 * time.Millisecond,
		BannerWindow: 3 * time.Second,
	}, testDelivery())
	if err != nil {
		t.Fatalf("session setup failed: %v", err)
	}
	defer s.Dispose()

	s.Start()
	if got := s.Snapshot().Status; got != models.DriverDelivering {
		t.Fatalf("expected Delivering, got %s", got)
	}

	deadline := time.After(2 * time.Second)
	for s.Snapshot().Status != models.DriverDelivered {
		select {
		case <-deadline:
			t.Fatalf("session never reached Delivered; status=%s", s.Snapshot().Status)
		case <-time.After(5 * time.Millisecond):
		}
	}
	if got := s.Snapshot().Progress; got != 100 {
		t.Fatalf("expected progress 100, got %d", got)
	}
}

func TestSessionDisposeIdempotent(t *testing.T) {
	geo := defaultFakeGeo()
	s := newTestSession(t, geo)
	s.Start()
	s.Dispose()
	s.Dispose()
	// a disposed session ignores lifecycle calls
	s.Start()
	s.mu.Lock()
	restarted := s.stop != nil
	s.mu.Unlock()
	if restarted {
		t.Fatalf("disposed session must not restart")
	}
}

func TestRegistryOnePerOrder(t *testing.T) {
	geo := defaultFakeGeo()
	r := NewRegistry()
	s := newTestSession(t, geo)
	if err := r.Add(s); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	dup := newTestSession(t, geo)
	if err := r.Add(dup); !errors.Is(err, ErrSessionExists) {
		t.Fatalf("expected ErrSessionExists, got %v", err)
	}
	if _, err := r.Get("order-1"); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if err := r.Remove("order-1"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, err := r.Get("order-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
