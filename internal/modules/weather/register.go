package weather

import (
	"net/http"

	"cloudpico-station/internal/modules/weather/controller"
)

// APIVersion is reported by GET /api.
const APIVersion = "v0.1.0"

func RegisterFeature(mux *http.ServeMux, source controller.SnapshotSource) {
	weatherController := controller.NewWeatherController(source, APIVersion)
	weatherController.RegisterRoutes(mux)
}
