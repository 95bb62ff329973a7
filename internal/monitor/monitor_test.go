package monitor

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/graborgan/internal/models"
)

type fakeDrivers struct {
	mu      sync.Mutex
	drivers map[string]models.Driver
	err     error
}

func (f *fakeDrivers) Get(ctx context.Context, driverID string) (models.Driver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return models.Driver{}, f.err
	}
	d, ok := f.drivers[driverID]
	if !ok {
		return models.Driver{}, errors.New("driver not found")
	}
	return d, nil
}

type fakeDeliveries struct {
	mu         sync.Mutex
	deliveries map[string]models.Delivery
}

func (f *fakeDeliveries) Get(ctx context.Context, orderID string) (models.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.deliveries[orderID]
	if !ok {
		return models.Delivery{}, errors.New("delivery not found")
	}
	return d, nil
}

type fakeAck struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeAck) AcknowledgeDriver(ctx context.Context, driverID, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, driverID+"/"+orderID)
	return f.err
}

func newTestMonitor(drivers *fakeDrivers, deliveries *fakeDeliveries, ack *fakeAck) *Monitor {
	return New(drivers, deliveries, ack, slog.Default(), time.Hour)
}

// plant registers a watch without starting the poll goroutine so checkOnce
// can be driven synchronously.
func plant(m *Monitor, driverID string) {
	m.mu.Lock()
	m.watches[driverID] = &watch{cancel: func() {}}
	m.mu.Unlock()
}

func TestCheckOnceRaisesAlert(t *testing.T) {
	drivers := &fakeDrivers{drivers: map[string]models.Driver{
		"d1": {
			ID:                        "d1",
			StationedHospital:         "Singapore General Hospital",
			AwaitingAcknowledgement:   true,
			CurrentAssignedDeliveryID: "order-7",
		},
	}}
	deliveries := &fakeDeliveries{deliveries: map[string]models.Delivery{
		"order-7": {OrderID: "order-7", Pickup: "Singapore General Hospital"},
	}}
	m := newTestMonitor(drivers, deliveries, &fakeAck{})
	plant(m, "d1")

	m.checkOnce(context.Background(), "d1")

	alert, ok := m.Alert("d1")
	if !ok {
		t.Fatalf("expected an alert")
	}
	if alert.DeliveryID != "order-7" {
		t.Fatalf("unexpected delivery in alert: %s", alert.DeliveryID)
	}
	if alert.Relocation {
		t.Fatalf("pickup at the stationed hospital is not a relocation")
	}
}

func TestCheckOnceRelocationAlert(t *testing.T) {
	drivers := &fakeDrivers{drivers: map[string]models.Driver{
		"d1": {
			ID:                        "d1",
			StationedHospital:         "Changi General Hospital",
			AwaitingAcknowledgement:   true,
			CurrentAssignedDeliveryID: "order-7",
		},
	}}
	deliveries := &fakeDeliveries{deliveries: map[string]models.Delivery{
		"order-7": {OrderID: "order-7", Pickup: "National University Hospital"},
	}}
	m := newTestMonitor(drivers, deliveries, &fakeAck{})
	plant(m, "d1")

	m.checkOnce(context.Background(), "d1")

	alert, ok := m.Alert("d1")
	if !ok {
		t.Fatalf("expected an alert")
	}
	if !alert.Relocation {
		t.Fatalf("pickup away from the stationed hospital should flag relocation")
	}
	if !strings.Contains(alert.Message, "National University Hospital") {
		t.Fatalf("relocation message should name the pickup, got %q", alert.Message)
	}
}

func TestCheckOnceQuietWhenAcknowledged(t *testing.T) {
	drivers := &fakeDrivers{drivers: map[string]models.Driver{
		"d1": {ID: "d1", AwaitingAcknowledgement: false, CurrentAssignedDeliveryID: "order-7"},
	}}
	m := newTestMonitor(drivers, &fakeDeliveries{}, &fakeAck{})
	plant(m, "d1")

	m.checkOnce(context.Background(), "d1")

	if _, ok := m.Alert("d1"); ok {
		t.Fatalf("no alert expected for an acknowledged driver")
	}
}

func TestCheckOnceSwallowsDriverLookupFailure(t *testing.T) {
	drivers := &fakeDrivers{err: errors.New("driver service down")}
	m := newTestMonitor(drivers, &fakeDeliveries{}, &fakeAck{})
	plant(m, "d1")

	m.checkOnce(context.Background(), "d1")

	if _, ok := m.Alert("d1"); ok {
		t.Fatalf("lookup failure must not raise an alert")
	}
}

func TestAcknowledgeClearsAlertAndConfirms(t *testing.T) {
	drivers := &fakeDrivers{drivers: map[string]models.Driver{
		"d1": {ID: "d1", AwaitingAcknowledgement: true, CurrentAssignedDeliveryID: "order-7"},
	}}
	ack := &fakeAck{}
	m := newTestMonitor(drivers, &fakeDeliveries{}, ack)
	plant(m, "d1")
	m.checkOnce(context.Background(), "d1")

	if err := m.Acknowledge(context.Background(), "d1"); err != nil {
		t.Fatalf("acknowledge failed: %v", err)
	}
	if _, ok := m.Alert("d1"); ok {
		t.Fatalf("acknowledge must clear the alert")
	}
	ack.mu.Lock()
	defer ack.mu.Unlock()
	if len(ack.calls) != 1 || ack.calls[0] != "d1/order-7" {
		t.Fatalf("unexpected acknowledge calls: %v", ack.calls)
	}
}

func TestAcknowledgeWithoutAlertIsNoop(t *testing.T) {
	ack := &fakeAck{}
	m := newTestMonitor(&fakeDrivers{}, &fakeDeliveries{}, ack)

	if err := m.Acknowledge(context.Background(), "d1"); err != nil {
		t.Fatalf("acknowledge without alert must not fail: %v", err)
	}
	ack.mu.Lock()
	defer ack.mu.Unlock()
	if len(ack.calls) != 0 {
		t.Fatalf("no upstream call expected, got %v", ack.calls)
	}
}

func TestStartAndStop(t *testing.T) {
	drivers := &fakeDrivers{drivers: map[string]models.Driver{
		"d1": {ID: "d1", AwaitingAcknowledgement: true, CurrentAssignedDeliveryID: "order-7"},
	}}
	deliveries := &fakeDeliveries{deliveries: map[string]models.Delivery{
		"order-7": {OrderID: "order-7", Pickup: "Singapore General Hospital"},
	}}
	m := New(drivers, deliveries, &fakeAck{}, slog.Default(), time.Hour)

	m.Start("d1")
	m.Start("d1") // duplicate start is a no-op

	deadline := time.After(2 * time.Second)
	for {
		if _, ok := m.Alert("d1"); ok {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("initial poll never raised the alert")
		case <-time.After(5 * time.Millisecond):
		}
	}

	m.Stop("d1")
	if _, ok := m.Alert("d1"); ok {
		t.Fatalf("stop must clear the watch and its alert")
	}
}
