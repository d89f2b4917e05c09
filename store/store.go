// Package store persists measurements received by the local collector.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"
)

const (
	Sqlite = "sqlite3"
	MySQL  = "mysql"

	countInfo = 1000

	sqliteCreateTableTmpl = `CREATE TABLE IF NOT EXISTS measurements (
		"ID"         TEXT NOT NULL PRIMARY KEY,
		"Device"     INTEGER,
		"User"       INTEGER,
		"Latitude"   REAL,
		"Longitude"  REAL,
		"DateTime"   TEXT,
		"Unit"       TEXT,
		"Values"     TEXT,
		"Received"   INTEGER
	);`
	mysqlCreateTableTmpl = "CREATE TABLE IF NOT EXISTS measurements (" +
		"`ID`        CHAR(36) NOT NULL PRIMARY KEY," +
		"`Device`    BIGINT," +
		"`User`      BIGINT," +
		"`Latitude`  DOUBLE," +
		"`Longitude` DOUBLE," +
		"`DateTime`  VARCHAR(64)," +
		"`Unit`      VARCHAR(32)," +
		"`Values`    TEXT," +
		"`Received`  BIGINT" +
		");"
	insertTmpl = `INSERT INTO measurements (ID, Device, User, Latitude, Longitude, DateTime, Unit, %s, Received)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);`
)

// Measurement is a collector submission in either payload dialect.
type Measurement struct {
	Device    int                 `json:"device"`
	User      int                 `json:"user"`
	Latitude  float64             `json:"latitude"`
	Longitude float64             `json:"longitude"`
	Values    map[string]*float64 `json:"values"`
	DateTime  string              `json:"dateTime"`
	Unit      string              `json:"unit"`
	Notes     string              `json:"notes"`
}

type SQL struct {
	DB     *sql.DB
	Driver string

	mu     sync.Mutex
	counts map[string]int
}

// Init creates the measurements table if needed.
func (s *SQL) Init(ctx context.Context) error {
	tmpl := sqliteCreateTableTmpl
	if s.Driver == MySQL {
		tmpl = mysqlCreateTableTmpl
	}
	if _, err := s.DB.ExecContext(ctx, tmpl); err != nil {
		return fmt.Errorf("unable to create table: %s", err)
	}
	return nil
}

// Insert stores m and returns the identifier assigned to it.
func (s *SQL) Insert(ctx context.Context, m Measurement) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counts == nil {
		s.counts = map[string]int{
			"error":   0,
			"success": 0,
			"total":   0,
		}
	}
	s.counts["total"] += 1

	id := uuid.NewString()
	values, err := json.Marshal(m.Values)
	if err != nil {
		s.counts["error"] += 1
		return "", err
	}
	valuesCol := `"Values"`
	if s.Driver == MySQL {
		valuesCol = "`Values`"
	}
	if _, err := s.DB.ExecContext(ctx, fmt.Sprintf(insertTmpl, valuesCol), id, m.Device, m.User, m.Latitude, m.Longitude, m.DateTime, m.Unit, string(values), time.Now().UnixMilli()); err != nil {
		s.counts["error"] += 1
		return "", fmt.Errorf("error storing measurement: %s", err)
	}
	s.counts["success"] += 1
	if s.counts["total"]%countInfo == 0 {
		glog.Infof("Measurement store counts: %+v\n", s.counts)
	}
	return id, nil
}
