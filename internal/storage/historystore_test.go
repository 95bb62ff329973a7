package storage

import (
	"testing"

	"github.com/example/graborgan/internal/models"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	s := NewMemoryStore()
	origin := models.Waypoint{Lat: 1.3551, Lng: 103.9849}
	destination := models.Waypoint{Lat: 1.3232, Lng: 103.8463}

	if err := s.SaveSession("order-1", "d1", origin, destination); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	status, ok := s.Status("order-1")
	if !ok || status != models.DriverReady {
		t.Fatalf("new session should be Ready, got %v ok=%v", status, ok)
	}

	if err := s.UpdateStatus("order-1", models.DriverDelivering); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	status, _ = s.Status("order-1")
	if status != models.DriverDelivering {
		t.Fatalf("expected Delivering, got %v", status)
	}

	for i := 0; i < 3; i++ {
		if err := s.RecordPosition("order-1", models.Waypoint{Lat: float64(i)}, i*10); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}
	trail := s.Trail("order-1")
	if len(trail) != 3 {
		t.Fatalf("expected 3 trail points, got %d", len(trail))
	}
	if trail[2].Lat != 2 {
		t.Fatalf("trail out of order: %+v", trail)
	}
}

func TestMemoryStoreUnknownOrder(t *testing.T) {
	s := NewMemoryStore()
	if err := s.UpdateStatus("ghost", models.DriverPaused); err != nil {
		t.Fatalf("unknown order update must be a no-op, got %v", err)
	}
	if err := s.RecordPosition("ghost", models.Waypoint{}, 0); err != nil {
		t.Fatalf("unknown order record must be a no-op, got %v", err)
	}
	if trail := s.Trail("ghost"); trail != nil {
		t.Fatalf("expected nil trail, got %v", trail)
	}
	if _, ok := s.Status("ghost"); ok {
		t.Fatalf("unknown order has no status")
	}
}
