package controller

import (
	"log/slog"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"nimbus-server/internal/modules/stations/types"
	"nimbus-server/internal/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func (c *stationsControllerImpl) handleStations(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, c.service.Stations())
}

func (c *stationsControllerImpl) handleStationsSummary(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, c.service.StationsSummary())
}

func (c *stationsControllerImpl) handleAirlinkStations(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, c.service.AirlinkStationsSummary())
}

func (c *stationsControllerImpl) handleAllAverages(w http.ResponseWriter, r *http.Request) {
	date, err := parseDateQuery(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, c.service.AveragesForDate(date, parseVariablesQuery(r)))
}

func (c *stationsControllerImpl) handleDataSummary(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, c.service.DataSummary())
}

func (c *stationsControllerImpl) handleMapSnapshot(w http.ResponseWriter, r *http.Request) {
	ts, tolerance, err := parseSnapshotQuery(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	points := c.service.MapSnapshot(ts, tolerance)
	if points == nil {
		points = []types.MapDataPoint{}
	}
	utils.WriteJSON(w, http.StatusOK, points)
}

func (c *stationsControllerImpl) handleAnimation(w http.ResponseWriter, r *http.Request) {
	var query types.AnimationQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := c.service.AnimationData(query)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, result)
}

func (c *stationsControllerImpl) handleTimeSeries(w http.ResponseWriter, r *http.Request) {
	var query types.TimeSeriesQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	utils.WriteJSON(w, http.StatusOK, c.service.TimeSeries(query))
}

func (c *stationsControllerImpl) handleStationData(w http.ResponseWriter, r *http.Request) {
	id, err := pathStationID(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	from, err := parseOptionalTime(r, "start_date")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := parseOptionalTime(r, "end_date")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	data := c.service.StationData(id, from, to)
	if len(data) == 0 {
		slog.Warn("station data: no rows", "station_id", id)
		utils.WriteError(w, http.StatusNotFound, "Estación no encontrada")
		return
	}
	utils.WriteJSON(w, http.StatusOK, data)
}

func (c *stationsControllerImpl) handleStationAverages(w http.ResponseWriter, r *http.Request) {
	id, err := pathStationID(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := parseDateQuery(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, c.service.StationAverages(id, date, parseVariablesQuery(r)))
}

func (c *stationsControllerImpl) handleStationDetailedData(w http.ResponseWriter, r *http.Request) {
	id, err := pathStationID(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := parseDateQuery(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, c.service.StationDetailedData(id, date))
}
