package report

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"
)

// WriteCSV writes rows to path as a comma-separated report, one line per
// event.
func WriteCSV(path string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"rotation_id",
		"vehicle_id",
		"vehicle_type",
		"min_soc",
		"missing_energy_before_kwh",
		"missing_energy_after_kwh",
		"stations_serving",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range rows {
		row := []string{
			r.RotationID,
			r.VehicleID,
			r.VehicleType,
			fmtFloat(r.MinSOC),
			fmtFloat(r.MissingEnergyBeforeKWh),
			fmtFloat(r.MissingEnergyAfterKWh),
			strings.Join(r.StationsServing, ";"),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
