package stations

import (
	"github.com/gorilla/mux"

	"nimbus-server/internal/modules/stations/controller"
	"nimbus-server/internal/modules/stations/service"
	"nimbus-server/internal/store"
)

func RegisterFeature(router *mux.Router, st *store.Store) service.StationsService {
	stationsService := service.NewStationsService(st)
	stationsController := controller.NewStationsController(stationsService)
	stationsController.RegisterRoutes(router)
	return stationsService
}
