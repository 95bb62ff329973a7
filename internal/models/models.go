package models

import "time"

// Waypoint is a single decoded point on a route. Immutable once decoded;
// produced only by the geo service's polyline decoder.
type Waypoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DeliveryStatus values come from the delivery-info service and are not
// normalized here; "In Progress" carries its space on the wire.
type DeliveryStatus string

const (
	DeliveryAssigned   DeliveryStatus = "Assigned"
	DeliveryInProgress DeliveryStatus = "In Progress"
	DeliveryDelivered  DeliveryStatus = "Delivered"
	DeliveryCompleted  DeliveryStatus = "Completed"
	DeliveryDeleted    DeliveryStatus = "Deleted"
)

// Delivery mirrors the delivery-info service document. Mutated only by
// backend actions (acknowledge, reroute, completion); the tracking loop
// sees changes through re-fetch.
type Delivery struct {
	OrderID         string         `json:"orderID"`
	Pickup          string         `json:"pickup"`
	Destination     string         `json:"destination"`
	PickupTime      string         `json:"pickup_time"`
	DestinationTime string         `json:"destination_time,omitempty"`
	Status          DeliveryStatus `json:"status"`
	DriverID        string         `json:"driverID,omitempty"`
	Polyline        string         `json:"polyline,omitempty"`
	MatchID         string         `json:"matchId,omitempty"`
	DriverCoord     *Waypoint      `json:"driverCoord,omitempty"`
	OrganType       string         `json:"organType,omitempty"`
}

// DriverStatus is the session-local animation status, distinct from the
// driver service's booking flags.
type DriverStatus string

const (
	DriverReady      DriverStatus = "Ready"
	DriverDelivering DriverStatus = "Delivering"
	DriverPaused     DriverStatus = "Paused"
	DriverDelivered  DriverStatus = "Delivered"
	DriverCompleted  DriverStatus = "Completed"
)

// DriverState is the per-session snapshot pushed to watchers on every tick.
// Owned by the tracking session; discarded with it.
type DriverState struct {
	Name            string       `json:"name"`
	Status          DriverStatus `json:"status"`
	Location        Waypoint     `json:"location"`
	Progress        int          `json:"progress"` // 0..100, straight-line estimate
	DeviationActive bool         `json:"deviation_active"`
	RoutePoints     int          `json:"route_points"`
	Updated         time.Time    `json:"updated"`
}

// Driver is the driver-info service document.
type Driver struct {
	ID                        string `json:"driver_id,omitempty"`
	Name                      string `json:"name"`
	Email                     string `json:"email"`
	StationedHospital         string `json:"stationed_hospital"`
	IsBooked                  bool   `json:"isBooked"`
	AwaitingAcknowledgement   bool   `json:"awaitingAcknowledgement"`
	CurrentAssignedDeliveryID string `json:"currentAssignedDeliveryId"`
}

// Match is read-only matching-service output.
type Match struct {
	MatchID      string `json:"matchId"`
	OrganID      string `json:"organId"`
	DonorID      string `json:"donorId"`
	RecipientID  string `json:"recipientId,omitempty"`
	NumOfHLA     int    `json:"numOfHLA"`
	TestDateTime string `json:"testDateTime"`
}

// Recipient is the subset of the recipient service document the dashboard
// lists and searches on.
type Recipient struct {
	ID           string   `json:"recipientId"`
	FirstName    string   `json:"firstName"`
	LastName     string   `json:"lastName"`
	BloodType    string   `json:"bloodType"`
	OrgansNeeded []string `json:"organsNeeded"`
}

// LabReport is a lab-report service document.
type LabReport struct {
	ReportID    string `json:"reportId"`
	RecipientID string `json:"recipientId"`
	TestType    string `json:"testType"`
	Result      string `json:"result"`
	DateOfTest  string `json:"dateOfReport"`
}

// OrderRequest is the payload for the order composite service.
type OrderRequest struct {
	OrderID            string `json:"orderId"`
	OrganType          string `json:"organType"`
	TransplantDateTime string `json:"transplantDateTime"`
	StartHospital      string `json:"startHospital"`
	EndHospital        string `json:"endHospital"`
	MatchID            string `json:"matchId"`
	Remarks            string `json:"remarks,omitempty"`
}

// PositionEvent is published to Kafka on every animation tick.
type PositionEvent struct {
	OrderID  string       `json:"order_id"`
	DriverID string       `json:"driver_id,omitempty"`
	Position Waypoint     `json:"position"`
	Progress int          `json:"progress"`
	Status   DriverStatus `json:"status"`
	At       time.Time    `json:"at"`
}
