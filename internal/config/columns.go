package config

import (
	"fmt"
	"strings"
)

// ParseColumns parses a --columns selection into column names.
// Format: a comma separated list where each entry is either a full column
// name ("imu_accel_x") or a sensor group "sensor:value1,value2" that expands
// to "sensor_value1", "sensor_value2". A group ends at the next entry that
// itself carries a ':' prefix. Duplicates are dropped, first occurrence wins.
// An empty selection returns nil (all columns).
func ParseColumns(selection string) ([]string, error) {
	selection = strings.TrimSpace(selection)
	if selection == "" {
		return nil, nil
	}

	var (
		columns []string
		seen    = make(map[string]bool)
		sensor  string
	)

	for _, part := range strings.Split(selection, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("empty column name in: %s", selection)
		}

		if prefix, value, ok := strings.Cut(part, ":"); ok {
			sensor = strings.TrimSpace(prefix)
			if sensor == "" {
				return nil, fmt.Errorf("empty sensor name in column group: %s", part)
			}
			part = strings.TrimSpace(value)
			if part == "" {
				return nil, fmt.Errorf("no values specified for sensor %s", sensor)
			}
		}

		name := part
		if sensor != "" {
			name = sensor + "_" + part
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		columns = append(columns, name)
	}

	return columns, nil
}
