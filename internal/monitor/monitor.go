// Package monitor polls the driver-info service for deliveries awaiting
// driver acknowledgement and surfaces operator alerts. The poll is an
// independent timer family, unrelated to any tracking session; operators
// start and stop it per driver.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/example/graborgan/internal/models"
)

type DriverGetter interface {
	Get(ctx context.Context, driverID string) (models.Driver, error)
}

type DeliveryGetter interface {
	Get(ctx context.Context, orderID string) (models.Delivery, error)
}

type Acknowledger interface {
	AcknowledgeDriver(ctx context.Context, driverID, orderID string) error
}

// Alert is raised when a driver has an unacknowledged delivery assignment.
type Alert struct {
	DriverID   string    `json:"driver_id"`
	DeliveryID string    `json:"delivery_id"`
	Message    string    `json:"message"`
	Relocation bool      `json:"relocation"`
	At         time.Time `json:"at"`
}

// Monitor runs one poll loop per watched driver.
type Monitor struct {
	drivers    DriverGetter
	deliveries DeliveryGetter
	ack        Acknowledger
	log        *slog.Logger
	interval   time.Duration

	mu      sync.Mutex
	watches map[string]*watch
}

type watch struct {
	cancel context.CancelFunc
	alert  *Alert
}

func New(drivers DriverGetter, deliveries DeliveryGetter, ack Acknowledger, log *slog.Logger, interval time.Duration) *Monitor {
	return &Monitor{
		drivers:    drivers,
		deliveries: deliveries,
		ack:        ack,
		log:        log,
		interval:   interval,
		watches:    make(map[string]*watch),
	}
}

// Start begins polling a driver. Starting an already watched driver is a
// no-op.
func (m *Monitor) Start(driverID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.watches[driverID]; ok {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &watch{cancel: cancel}
	m.watches[driverID] = w
	go m.run(ctx, driverID)
	m.log.Info("driver status monitoring started", "driver_id", driverID)
}

// Stop ends polling and clears any pending alert for the driver.
func (m *Monitor) Stop(driverID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.watches[driverID]
	if !ok {
		return
	}
	w.cancel()
	delete(m.watches, driverID)
	m.log.Info("driver status monitoring stopped", "driver_id", driverID)
}

// Alert returns the pending alert for a driver, if any.
func (m *Monitor) Alert(driverID string) (Alert, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.watches[driverID]
	if !ok || w.alert == nil {
		return Alert{}, false
	}
	return *w.alert, true
}

// Acknowledge clears the pending alert and confirms the assignment with the
// delivery composite.
func (m *Monitor) Acknowledge(ctx context.Context, driverID string) error {
	m.mu.Lock()
	w, ok := m.watches[driverID]
	var deliveryID string
	if ok && w.alert != nil {
		deliveryID = w.alert.DeliveryID
		w.alert = nil
	}
	m.mu.Unlock()
	if deliveryID == "" {
		return nil
	}
	return m.ack.AcknowledgeDriver(ctx, driverID, deliveryID)
}

// Shutdown stops every watch.
func (m *Monitor) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, w := range m.watches {
		w.cancel()
		delete(m.watches, id)
	}
}

func (m *Monitor) run(ctx context.Context, driverID string) {
	m.checkOnce(ctx, driverID)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkOnce(ctx, driverID)
		}
	}
}

func (m *Monitor) checkOnce(ctx context.Context, driverID string) {
	d, err := m.drivers.Get(ctx, driverID)
	if err != nil {
		m.log.Warn("driver status check failed", "driver_id", driverID, "error", err)
		return
	}
	if !d.AwaitingAcknowledgement || d.CurrentAssignedDeliveryID == "" {
		return
	}

	alert := Alert{
		DriverID:   driverID,
		DeliveryID: d.CurrentAssignedDeliveryID,
		Message:    fmt.Sprintf("driver %s needs to acknowledge delivery %s", driverID, d.CurrentAssignedDeliveryID),
		At:         time.Now(),
	}
	if del, err := m.deliveries.Get(ctx, d.CurrentAssignedDeliveryID); err == nil {
		if del.Pickup != d.StationedHospital {
			alert.Relocation = true
			alert.Message = fmt.Sprintf(
				"driver %s needs to acknowledge delivery %s and travel to %s",
				driverID, d.CurrentAssignedDeliveryID, del.Pickup,
			)
		}
	} else {
		m.log.Warn("delivery lookup for alert failed", "delivery_id", d.CurrentAssignedDeliveryID, "error", err)
	}

	m.mu.Lock()
	if w, ok := m.watches[driverID]; ok {
		w.alert = &alert
	}
	m.mu.Unlock()
	m.log.Info("driver acknowledgement alert raised", "driver_id", driverID, "delivery_id", alert.DeliveryID, "relocation", alert.Relocation)
}
