package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"stationelectrify/internal/config"
	"stationelectrify/internal/curve"
	"stationelectrify/internal/data"
	"stationelectrify/internal/electrify"
	"stationelectrify/internal/events"
	"stationelectrify/internal/model"
	"stationelectrify/internal/obslog"
	"stationelectrify/internal/optimizererrors"
	"stationelectrify/internal/report"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "run":
		cmdRun(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  optimize run --config config.ini --registry vehicles.yaml --rotations rotations.json --baseline baseline.json --start 2024-01-01T00:00:00Z --out electrified.json --report report.csv")
}

func cmdRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to INI run configuration (required)")
	registryPath := fs.String("registry", "", "Path to YAML vehicle-type registry (required)")
	rotationsPath := fs.String("rotations", "", "Path to rotations JSON (required)")
	baselinePath := fs.String("baseline", "", "Path to baseline SoC trace JSON (required)")
	outPath := fs.String("out", "electrified_stations.json", "Path to write the electrified stations result")
	reportPath := fs.String("report", "", "Optional path to write a per-event CSV report")
	startStr := fs.String("start", "", "Scenario start instant, RFC3339 (required)")
	stepMin := fs.Float64("step-min", 1, "Simulation step size in minutes")
	socUpper := fs.Float64("soc-upper", 0.8, "Upper SoC threshold for event detection")
	socLower := fs.Float64("soc-lower", 0.0, "Forbidden SoC floor")
	_ = fs.Parse(args)

	if *cfgPath == "" || *registryPath == "" || *rotationsPath == "" || *baselinePath == "" || *startStr == "" {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fatal(err)
	}
	reg, err := config.LoadVehicleRegistry(*registryPath)
	if err != nil {
		fatal(err)
	}
	cfg.ApplyVehicleOverrides(reg)
	rotations, err := data.LoadRotations(*rotationsPath)
	if err != nil {
		fatal(err)
	}
	baseline, err := data.LoadTraces(*baselinePath)
	if err != nil {
		fatal(err)
	}
	start, err := time.Parse(time.RFC3339, *startStr)
	if err != nil {
		fatal(err)
	}

	log, err := obslog.New(cfg.DebugLevel)
	if err != nil {
		fatal(err)
	}

	notPossible := model.NewStationSet(cfg.ExclusionStations...)
	eventCfg := events.Config{
		SOCUpperThresh:      *socUpper,
		SOCLowerThresh:      *socLower,
		FilterStandingTime:  true,
		NotPossibleStations: notPossible,
		Standing:            model.StandingTimeConfig{BufferMin: 0, MinChargingMin: 1},
		StepMin:             *stepMin,
	}

	opt := electrify.New(reg, log, nil)
	result, err := opt.Run(context.Background(), rotations, baseline, electrify.RunConfig{
		Start:        start,
		StepMin:      *stepMin,
		CurveParams:  curve.Params{EfficiencyFrac: cfg.ChargingEfficiency, StepMin: *stepMin},
		EventCfg:     eventCfg,
		SearchMode:   cfg.SearchMode(),
		Chooser:      cfg.SearchChooser(),
		MaxBruteLoop: cfg.MaxBruteLoop,
		NotPossible:  notPossible,
	})
	if err != nil {
		if optimizererrors.Is(err, optimizererrors.KindNoCandidateStations) {
			fmt.Println("no candidate stations available for one or more deficits")
			os.Exit(1)
		}
		fatal(err)
	}

	if err := data.SaveElectrifiedStations(result.Electrified, *outPath); err != nil {
		fatal(err)
	}
	if *reportPath != "" {
		if err := report.WriteCSV(*reportPath, result.Report); err != nil {
			fatal(err)
		}
	}

	fmt.Printf("run %s: electrified %d station(s), excluded %d rotation(s), remaining missing energy %.2f kWh\n",
		result.RunID, len(result.Electrified), len(result.ExcludedRotationIDs), result.RemainingMissingKWh)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
