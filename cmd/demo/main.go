package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"stationelectrify/internal/curve"
	"stationelectrify/internal/electrify"
	"stationelectrify/internal/events"
	"stationelectrify/internal/model"
	"stationelectrify/internal/search"
)

// Demo builds a small synthetic two-stop rotation with a below-threshold
// SoC dip, runs the full optimizer pipeline against it, and prints what
// got electrified. It exists to show how the packages fit together
// without needing real scenario files on disk.
func main() {
	stepMin := flag.Float64("step-min", 1, "Simulation step size in minutes")
	flag.Parse()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rot := model.Rotation{
		ID:           "demo-rot-1",
		VehicleID:    "demo-bus-1",
		VehicleType:  "standard-12m",
		ChargingType: model.ChargingOpportunity,
		Trips: []model.Trip{
			{DepartureTime: start, ArrivalTime: start.Add(10 * time.Minute), ArrivalName: "depot", ConsumptionKWh: 40},
			{DepartureTime: start.Add(20 * time.Minute), ArrivalTime: start.Add(29 * time.Minute), ArrivalName: "downtown-terminus", ConsumptionKWh: 50},
		},
	}

	trace := make(model.SoCTrace, 30)
	for i := 0; i <= 10; i++ {
		trace[i] = 1.0 - 0.4*float64(i)/10
	}
	for i := 10; i <= 20; i++ {
		trace[i] = 0.6
	}
	for i := 20; i <= 28; i++ {
		trace[i] = 0.6 - 0.5*float64(i-20)/8
	}
	trace[29] = 0.1

	reg := model.VehicleRegistry{
		"standard-12m": {
			model.ChargingOpportunity: model.VehicleTypeParams{
				CapacityKWh: 100,
				ChargingCurve: []model.ChargingBreakpoint{
					{SOC: 0, PowerKW: 450},
					{SOC: 0.8, PowerKW: 296},
					{SOC: 1, PowerKW: 210},
				},
			},
		},
	}

	opt := electrify.New(reg, nil, nil)
	result, err := opt.Run(context.Background(), []model.Rotation{rot}, model.Traces{"demo-bus-1": trace}, electrify.RunConfig{
		Start:   start,
		StepMin: *stepMin,
		CurveParams: curve.Params{
			EfficiencyFrac: 0.95,
			StepMin:        *stepMin,
		},
		EventCfg: events.Config{
			SOCUpperThresh:     0.62,
			SOCLowerThresh:     0.2,
			FilterStandingTime: true,
			Standing:           model.StandingTimeConfig{BufferMin: 2, MinChargingMin: 3},
			StepMin:            *stepMin,
		},
		SearchMode:   search.ModeDeep,
		MaxBruteLoop: 2,
	})
	if err != nil {
		panic(err)
	}

	fmt.Printf("run %s electrified: %v\n", result.RunID, result.Electrified)
	fmt.Printf("remaining missing energy: %.2f kWh\n", result.RemainingMissingKWh)
	for _, row := range result.Report {
		fmt.Printf("  rotation=%s vehicle=%s min_soc=%.3f missing_before=%.2f missing_after=%.2f stations=%v\n",
			row.RotationID, row.VehicleID, row.MinSOC, row.MissingEnergyBeforeKWh, row.MissingEnergyAfterKWh, row.StationsServing)
	}
}
