package storage

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"github.com/example/graborgan/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// quick ping
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) SaveSession(orderID, driverID string, origin, destination models.Waypoint) error {
	_, err := p.db.Exec(`INSERT INTO tracking_sessions(order_id, driver_id, origin_lat, origin_lng, dest_lat, dest_lng, status, created_at, updated_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (order_id) DO UPDATE SET driver_id=$2, status=$7, updated_at=$9`,
		orderID, driverID, origin.Lat, origin.Lng, destination.Lat, destination.Lng, models.DriverReady, time.Now(), time.Now())
	return err
}

func (p *PostgresStore) UpdateStatus(orderID string, status models.DriverStatus) error {
	_, err := p.db.Exec(`UPDATE tracking_sessions SET status=$1, updated_at=$2 WHERE order_id=$3`,
		status, time.Now(), orderID)
	return err
}

func (p *PostgresStore) RecordPosition(orderID string, pos models.Waypoint, progress int) error {
	_, err := p.db.Exec(`INSERT INTO tracking_positions(order_id, lat, lng, progress, recorded_at) VALUES($1,$2,$3,$4,$5)`,
		orderID, pos.Lat, pos.Lng, progress, time.Now())
	return err
}
