// Package handlers implements the HTTP surface over the optimizer.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"stationelectrify/internal/curve"
	"stationelectrify/internal/electrify"
	"stationelectrify/internal/events"
	"stationelectrify/internal/model"
	"stationelectrify/internal/obslog"
	"stationelectrify/internal/obsmetrics"
	"stationelectrify/internal/search"
)

// OptimizeHandler serves POST /optimize.
type OptimizeHandler struct {
	Registry model.VehicleRegistry
	Log      obslog.Sink
	Metrics  *obsmetrics.Metrics
}

// NewOptimizeHandler builds a handler bound to a fixed vehicle-type
// registry shared across requests.
func NewOptimizeHandler(reg model.VehicleRegistry, log obslog.Sink, metrics *obsmetrics.Metrics) *OptimizeHandler {
	return &OptimizeHandler{Registry: reg, Log: log, Metrics: metrics}
}

// OptimizeRequest is the JSON body of a run request.
type OptimizeRequest struct {
	Rotations          []model.Rotation   `json:"rotations"`
	BaselineTraces      map[string][]float64 `json:"baseline_traces"`
	Start              time.Time           `json:"start"`
	StepMin            float64             `json:"step_min"`
	SOCUpperThresh     float64             `json:"soc_upper_thresh"`
	SOCLowerThresh     float64             `json:"soc_lower_thresh"`
	ExclusionStations  []string            `json:"exclusion_stations"`
	ChargingEfficiency float64             `json:"charging_efficiency"`
	Deep               bool                `json:"deep"`
	MaxBruteLoop       int                 `json:"max_brute_loop"`
}

// OptimizeResponse is the JSON body of a successful run.
type OptimizeResponse struct {
	RunID               string                    `json:"run_id"`
	Electrified         model.ElectrifiedStations `json:"electrified_stations"`
	ExcludedRotationIDs []string                  `json:"excluded_rotation_ids"`
	RemainingMissingKWh float64                   `json:"remaining_missing_energy_kwh"`
}

// Run handles POST /optimize: it runs the full pipeline synchronously
// and returns the resulting station set. Large fleets are expected to be
// dispatched through the CLI instead; this endpoint targets interactive,
// small-to-medium scenarios.
func (h *OptimizeHandler) Run(c *gin.Context) {
	var req OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.StepMin <= 0 {
		req.StepMin = 1
	}
	if req.ChargingEfficiency <= 0 {
		req.ChargingEfficiency = 0.95
	}
	if req.MaxBruteLoop <= 0 {
		req.MaxBruteLoop = 20
	}

	baseline := make(model.Traces, len(req.BaselineTraces))
	for vehicle, series := range req.BaselineTraces {
		baseline[vehicle] = model.SoCTrace(series)
	}

	notPossible := model.NewStationSet(req.ExclusionStations...)
	mode := search.ModeGreedy
	if req.Deep {
		mode = search.ModeDeep
	}

	opt := electrify.New(h.Registry, h.Log, h.Metrics)
	result, err := opt.Run(c.Request.Context(), req.Rotations, baseline, electrify.RunConfig{
		Start:       req.Start,
		StepMin:     req.StepMin,
		CurveParams: curve.Params{EfficiencyFrac: req.ChargingEfficiency, StepMin: req.StepMin},
		EventCfg: events.Config{
			SOCUpperThresh:      req.SOCUpperThresh,
			SOCLowerThresh:      req.SOCLowerThresh,
			FilterStandingTime:  true,
			NotPossibleStations: notPossible,
			Standing:            model.StandingTimeConfig{BufferMin: 0, MinChargingMin: 1},
			StepMin:             req.StepMin,
		},
		SearchMode:   mode,
		Chooser:      search.ChooserStepByStep,
		MaxBruteLoop: req.MaxBruteLoop,
		NotPossible:  notPossible,
	})
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, OptimizeResponse{
		RunID:               result.RunID,
		Electrified:         result.Electrified,
		ExcludedRotationIDs: result.ExcludedRotationIDs,
		RemainingMissingKWh: result.RemainingMissingKWh,
	})
}
