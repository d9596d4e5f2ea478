// Package report turns one optimizer run's events and winning station
// set into a flat, per-event ledger suitable for CSV export.
package report

import (
	"strconv"

	"stationelectrify/internal/model"
)

// Row is one event's before/after summary.
type Row struct {
	RotationID           string
	VehicleID            string
	VehicleType          string
	MinSOC               float64
	MissingEnergyBeforeKWh float64
	MissingEnergyAfterKWh  float64
	StationsServing        []string
}

// Build summarizes before (the original extraction) against after (the
// same rotations re-extracted against the winning electrified layout).
// Events are matched by rotation ID + MinIdx. A before-event with no
// after-event at the same minimum index (its deficit was resolved, or its
// minimum moved) keeps a MissingEnergyAfterKWh of zero.
func Build(before, after []model.Event, electrified model.StationSet) []Row {
	afterByKey := make(map[string]model.Event, len(after))
	for _, e := range after {
		afterByKey[eventKey(e)] = e
	}

	rows := make([]Row, 0, len(before))
	for _, e := range before {
		row := Row{
			RotationID:             e.Rotation.ID,
			VehicleID:              e.VehicleID,
			VehicleType:            e.VehicleType,
			MinSOC:                 e.MinSOC,
			MissingEnergyBeforeKWh: e.MissingEnergyKWh(),
		}
		if match, ok := afterByKey[eventKey(e)]; ok {
			row.MissingEnergyAfterKWh = match.MissingEnergyKWh()
		}
		for _, station := range e.Stations.Sorted() {
			if electrified.Has(station) {
				row.StationsServing = append(row.StationsServing, station)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func eventKey(e model.Event) string {
	id := ""
	if e.Rotation != nil {
		id = e.Rotation.ID
	}
	return id + "#" + strconv.Itoa(e.MinIdx)
}
