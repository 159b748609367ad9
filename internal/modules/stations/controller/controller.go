// Package controller exposes the stations endpoints. Handlers validate
// parameters, delegate to the service and translate results to JSON.
package controller

import (
	"net/http"

	"github.com/gorilla/mux"

	"nimbus-server/internal/modules/stations/service"
)

type StationsController interface {
	RegisterRoutes(router *mux.Router)
}

type stationsControllerImpl struct {
	service service.StationsService
}

func NewStationsController(svc service.StationsService) StationsController {
	return &stationsControllerImpl{service: svc}
}

func (c *stationsControllerImpl) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/stations", c.handleStations).Methods(http.MethodGet)
	router.HandleFunc("/stations/summary", c.handleStationsSummary).Methods(http.MethodGet)
	router.HandleFunc("/stations/airlink", c.handleAirlinkStations).Methods(http.MethodGet)
	router.HandleFunc("/stations/averages", c.handleAllAverages).Methods(http.MethodGet)
	router.HandleFunc("/stations/summary/data", c.handleDataSummary).Methods(http.MethodGet)
	router.HandleFunc("/stations/map/snapshot", c.handleMapSnapshot).Methods(http.MethodGet)
	router.HandleFunc("/stations/map/animation", c.handleAnimation).Methods(http.MethodPost)
	router.HandleFunc("/stations/timeseries", c.handleTimeSeries).Methods(http.MethodPost)
	router.HandleFunc("/stations/{id:[0-9]+}", c.handleStationData).Methods(http.MethodGet)
	router.HandleFunc("/stations/{id:[0-9]+}/averages", c.handleStationAverages).Methods(http.MethodGet)
	router.HandleFunc("/stations/{id:[0-9]+}/detailed-data", c.handleStationDetailedData).Methods(http.MethodGet)
}
