package tracking

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/example/graborgan/internal/geoclient"
	"github.com/example/graborgan/internal/models"
	"github.com/example/graborgan/internal/observability"
	"github.com/example/graborgan/internal/route"
)

// Sink receives a DriverState snapshot after every tick. Implementations
// must not block; slow consumers get dropped updates, not a stalled loop.
type Sink interface {
	Publish(orderID string, st models.DriverState)
}

// Publisher pushes position events onto the courier-positions stream.
type Publisher interface {
	PublishPosition(ev models.PositionEvent) error
}

// Recorder persists session lifecycle and position history.
type Recorder interface {
	UpdateStatus(orderID string, status models.DriverStatus) error
	RecordPosition(orderID string, pos models.Waypoint, progress int) error
}

// Config tunes one tracking session.
type Config struct {
	TickPeriod   time.Duration // animation tick, nominal 1s
	BannerWindow time.Duration // how long the deviation banner stays up
}

type phase int

const (
	phaseTracking phase = iota
	phaseRerouting
)

// Session owns all mutable state for one delivery's tracking view: the
// route buffer, the driver snapshot and the tick goroutine. All network
// work happens off the tick path; a slow deviation response affects a later
// tick, never the current one.
type Session struct {
	OrderID string

	geo       geoclient.Geo
	log       *slog.Logger
	cfg       Config
	publisher Publisher
	recorder  Recorder

	mu          sync.Mutex
	buf         *route.Buffer
	origin      models.Waypoint
	destination models.Waypoint
	polyline    string
	state       models.DriverState
	phase       phase
	bannerUntil time.Time
	sinks       []Sink
	stop        chan struct{}
	disposed    bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewSession decodes the delivery's polyline and geocodes its endpoints.
// Setup failures surface to the caller; nothing starts ticking yet.
func NewSession(ctx context.Context, geo geoclient.Geo, log *slog.Logger, cfg Config, d models.Delivery) (*Session, error) {
	points, err := geo.DecodePolyline(ctx, d.Polyline)
	if err != nil {
		return nil, err
	}

	buf := route.NewBuffer()
	buf.Load(points)

	// Endpoint coordinates anchor the progress estimate. Geocode misses
	// fall back to the route's own endpoints.
	origin := points[0]
	destination := points[len(points)-1]
	if wp, err := geo.AddressToCoordinates(ctx, d.Pickup); err == nil && wp != nil {
		origin = *wp
	}
	if wp, err := geo.AddressToCoordinates(ctx, d.Destination); err == nil && wp != nil {
		destination = *wp
	}

	name := d.DriverID
	if name == "" {
		name = "Unassigned"
	}

	sctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		OrderID:     d.OrderID,
		geo:         geo,
		log:         log.With("order_id", d.OrderID),
		cfg:         cfg,
		buf:         buf,
		origin:      origin,
		destination: destination,
		polyline:    d.Polyline,
		ctx:         sctx,
		cancel:      cancel,
		state: models.DriverState{
			Name:        name,
			Status:      models.DriverReady,
			Location:    points[0],
			RoutePoints: len(points),
			Updated:     time.Now(),
		},
	}
	return s, nil
}

// SetPublisher wires the Kafka position stream; optional.
func (s *Session) SetPublisher(p Publisher) { s.publisher = p }

// SetRecorder wires the history store; optional.
func (s *Session) SetRecorder(r Recorder) { s.recorder = r }

// Subscribe registers a snapshot sink.
func (s *Session) Subscribe(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink)
}

// Start begins or resumes ticking. Ready/Paused move to Delivering;
// any other state is a no-op.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed || s.stop != nil {
		return
	}
	if s.state.Status != models.DriverReady && s.state.Status != models.DriverPaused {
		return
	}
	s.state.Status = models.DriverDelivering
	s.stop = make(chan struct{})
	observability.SessionsActive.Inc()
	s.recordStatus(models.DriverDelivering)
	go s.run(s.stop)
}

// Pause suspends ticking, retaining the current index.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status != models.DriverDelivering {
		return
	}
	s.stopTickingLocked()
	s.state.Status = models.DriverPaused
	s.recordStatus(models.DriverPaused)
}

// Reset returns the session to Ready: index 0, progress 0, marker on the
// first waypoint, banner cleared.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.stopTickingLocked()
	s.buf.Reset()
	s.phase = phaseTracking
	s.bannerUntil = time.Time{}
	s.state.Status = models.DriverReady
	s.state.Progress = 0
	s.state.DeviationActive = false
	if wp, ok := s.buf.Current(); ok {
		s.state.Location = wp
	}
	s.state.Updated = time.Now()
	s.recordStatus(models.DriverReady)
}

// Dispose releases the ticker, the deviation context and any pending work.
// Safe to call more than once.
func (s *Session) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.stopTickingLocked()
	s.cancel()
	s.disposed = true
	s.sinks = nil
}

// Snapshot returns a copy of the current driver state.
func (s *Session) Snapshot() models.DriverState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.DeviationActive = time.Now().Before(s.bannerUntil)
	return st
}

// Endpoints returns the geocoded origin and destination anchoring the
// progress estimate.
func (s *Session) Endpoints() (origin, destination models.Waypoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.origin, s.destination
}

// RoutePoints returns the remaining waypoints for rendering the trail.
func (s *Session) RoutePoints() []models.Waypoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Points()
}

func (s *Session) stopTickingLocked() {
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
		observability.SessionsActive.Dec()
	}
}

func (s *Session) run(stop chan struct{}) {
	ticker := time.NewTicker(s.cfg.TickPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !s.tick() {
				return
			}
		}
	}
}

// tick advances the animation by one waypoint. It returns false when the
// route is exhausted and ticking should stop. The deviation check is fired
// off without waiting; its outcome lands on a later tick's buffer.
func (s *Session) tick() bool {
	s.mu.Lock()
	if s.state.Status != models.DriverDelivering {
		s.mu.Unlock()
		return false
	}
	observability.TicksTotal.Inc()

	wp, more := s.buf.Advance()
	// Shrink the traveled trail so watchers render the remaining route only.
	s.buf.ConsumeTraveled(s.buf.Index())

	s.state.Location = wp
	s.state.Progress = route.Progress(wp, s.origin, s.destination)
	s.state.RoutePoints = s.buf.Len()
	s.state.DeviationActive = time.Now().Before(s.bannerUntil)
	s.state.Updated = time.Now()

	if !more {
		s.state.Status = models.DriverDelivered
		s.state.Progress = 100
		if s.stop != nil {
			s.stop = nil
			observability.SessionsActive.Dec()
		}
	}

	st := s.state
	encoded := s.polyline
	checkDeviation := more && s.phase == phaseTracking
	sinks := append([]Sink(nil), s.sinks...)
	s.mu.Unlock()

	for _, sink := range sinks {
		sink.Publish(s.OrderID, st)
	}
	if s.publisher != nil {
		ev := models.PositionEvent{
			OrderID:  s.OrderID,
			DriverID: st.Name,
			Position: st.Location,
			Progress: st.Progress,
			Status:   st.Status,
			At:       st.Updated,
		}
		go func() {
			if err := s.publisher.PublishPosition(ev); err != nil {
				s.log.Warn("position publish failed", "error", err)
			}
		}()
	}
	if s.recorder != nil {
		if err := s.recorder.RecordPosition(s.OrderID, st.Location, st.Progress); err != nil {
			s.log.Warn("position record failed", "error", err)
		}
	}
	if checkDeviation {
		go s.checkDeviation(encoded, st.Location)
	}
	if st.Status == models.DriverDelivered {
		s.recordStatus(models.DriverDelivered)
		s.log.Info("delivery reached destination", "progress", st.Progress)
		return false
	}
	return true
}

// checkDeviation reports the position to the geo service and, when the
// backend flags a deviation, fetches and splices a recalculated route.
// Every failure here is logged and swallowed: a stale route beats a frozen
// tracker, and assuming "not deviated" on error avoids rerouting storms.
func (s *Session) checkDeviation(encoded string, pos models.Waypoint) {
	deviated, err := s.geo.CheckDeviation(s.ctx, encoded, pos)
	if err != nil {
		s.log.Warn("deviation check failed, assuming on route", "error", err)
		return
	}
	if !deviated {
		return
	}
	observability.DeviationsTotal.Inc()

	s.mu.Lock()
	if s.phase != phaseTracking || s.disposed {
		s.mu.Unlock()
		return
	}
	s.phase = phaseRerouting
	s.bannerUntil = time.Now().Add(s.cfg.BannerWindow)
	dest := s.destination
	s.mu.Unlock()

	s.log.Info("deviation detected, requesting new route", "lat", pos.Lat, "lng", pos.Lng)
	s.reroute(pos, dest)
}

func (s *Session) reroute(pos, dest models.Waypoint) {
	defer func() {
		s.mu.Lock()
		s.phase = phaseTracking
		s.mu.Unlock()
	}()

	newEncoded, err := s.geo.RequestNewRoute(s.ctx, pos, dest)
	if err != nil {
		observability.RerouteFailures.Inc()
		s.log.Warn("reroute request failed, keeping current route", "error", err)
		return
	}
	points, err := s.geo.DecodePolyline(s.ctx, newEncoded)
	if err != nil {
		observability.RerouteFailures.Inc()
		s.log.Warn("reroute decode failed, keeping current route", "error", err)
		return
	}

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.buf.SpliceNewRoute(pos, points)
	s.polyline = newEncoded
	s.state.RoutePoints = s.buf.Len()
	s.mu.Unlock()

	observability.ReroutesTotal.Inc()
	s.log.Info("route recalculated", "points", len(points)+1)
}

func (s *Session) recordStatus(status models.DriverStatus) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.UpdateStatus(s.OrderID, status); err != nil {
		s.log.Warn("status record failed", "error", err)
	}
}
