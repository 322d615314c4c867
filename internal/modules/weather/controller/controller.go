package controller

import (
	"net/http"

	"cloudpico-station/internal/modules/weather/types"
)

// SnapshotSource is the read side of the aggregator.
type SnapshotSource interface {
	Latest() types.Snapshot
	Daytime() types.DayRollup
	Online() bool
}

type WeatherController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type weatherControllerImpl struct {
	source     SnapshotSource
	apiVersion string
}

func NewWeatherController(source SnapshotSource, apiVersion string) WeatherController {
	return &weatherControllerImpl{source: source, apiVersion: apiVersion}
}

func (c *weatherControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api", c.handleVersion)
	mux.HandleFunc("GET /api/latest", c.handleLatest)
	mux.HandleFunc("GET /api/daytime", c.handleDaytime)
	mux.HandleFunc("GET /api/status", c.handleStatus)
}
