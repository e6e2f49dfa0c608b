// Package report renders a LaTeX summary of a decoded flight.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/basekick-labs/flightdata/pkg/models"
)

const header = "\\documentclass{article}\n\n"

// Report is the statistics of one flight bound to its rocket configuration
type Report struct {
	config *models.RocketConfig
	stats  *Collector
}

// New creates a report from the statistics collected over a flight's rows
func New(config *models.RocketConfig, stats *Collector) *Report {
	return &Report{config: config, stats: stats}
}

// Write renders the report as a LaTeX document
func (r *Report) Write(w io.Writer) error {
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}

	elements := []Element{
		Section("Sensor Data"),
		Raw(r.introduction()),
	}

	for i := range r.config.Sensors {
		sensor := &r.config.Sensors[i]
		elements = append(elements, Subsection(Escape(sensor.Name)))

		names := make([]string, len(sensor.Values))
		for j, v := range sensor.Values {
			names[j] = Escape(v.Name)
		}
		elements = append(elements, Raw(fmt.Sprintf("The %s sensor has %d values: %s. ",
			Escape(sensor.Name), len(sensor.Values), strings.Join(names, ", "))))

		recorded := false
		for j := range sensor.Values {
			value := &sensor.Values[j]
			stats, ok := r.stats.Column(models.ColumnName(sensor, value))
			if !ok {
				continue
			}
			recorded = true
			elements = append(elements,
				Raw(fmt.Sprintf("The %s value has %d samples. ", Escape(value.Name), stats.Count)),
				Raw(fmt.Sprintf("The minimum value is %s. ", stats.Min)),
				Raw(fmt.Sprintf("The maximum value is %s. ", stats.Max)),
			)
		}
		if !recorded {
			elements = append(elements, Raw("No data was recorded for this sensor. "))
		}
	}

	return Environment{Name: "document", Elements: elements}.Write(w)
}

func (r *Report) introduction() string {
	names := make([]string, len(r.config.Sensors))
	for i, s := range r.config.Sensors {
		names[i] = Escape(s.Name)
	}
	return fmt.Sprintf("The %s rocket has %d sensors: %s.",
		Escape(r.config.DisplayTitle()), len(r.config.Sensors), strings.Join(names, ", "))
}
