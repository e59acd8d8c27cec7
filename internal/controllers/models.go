package controllers

import (
	"encoding/json"
	"time"
)

// Position codes with a fixed sort priority
const (
	PositionCenter = "CTR"
	PositionTower  = "TWR"
	PositionGround = "GND"
)

// RawController is one entry of the upstream /controllers list
type RawController struct {
	Holder   string          `json:"holder"`
	Airport  string          `json:"airport"`
	Position string          `json:"position"`
	Queue    json.RawMessage `json:"queue"`
}

// Controller is a normalised controller position as served to dashboards
type Controller struct {
	Holder       string          `json:"holder"`
	Airport      string          `json:"airport"`
	Position     string          `json:"position"`
	Queue        json.RawMessage `json:"queue"`
	Frequency    string          `json:"frequency"`
	PositionName string          `json:"position_name"` // IRCC_CTR, IRFD_TWR
}

// ATISMap holds ATIS entries keyed by airport. Entries are passed through untouched.
type ATISMap map[string]json.RawMessage

// Status reports the poller state for health checks
type Status struct {
	Enabled        bool      `json:"enabled"`
	LastATCUpdate  time.Time `json:"last_atc_update,omitempty"`
	LastATISUpdate time.Time `json:"last_atis_update,omitempty"`
	Controllers    int       `json:"controllers"`
	ATIS           int       `json:"atis"`
	LastError      string    `json:"last_error,omitempty"`
}
