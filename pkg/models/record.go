package models

// Packet is one decoded sensor reading: the sensor ID followed by its values
// in the sensor's declared order. Packets are produced by the decoder and
// consumed immediately by the table generator.
type Packet struct {
	ID     uint8
	Values []TypedValue
}

// Column is a (sensor, value) pair of the output table
type Column struct {
	Name     string    `json:"name"` // "{sensor}_{value}"
	SensorID uint8     `json:"sensor_id"`
	Sensor   string    `json:"sensor"`
	Value    string    `json:"value"`
	Kind     ValueKind `json:"data_type"`
}

// Cell is one slot of a Row. Valid is false when no packet contributed a
// value for the column in this row.
type Cell struct {
	Value TypedValue
	Valid bool
}

// Row holds one cell per column, in column order
type Row []Cell

// Sparse reports whether any cell is empty
func (r Row) Sparse() bool {
	for _, c := range r {
		if !c.Valid {
			return true
		}
	}
	return false
}

// Filled returns the number of non-empty cells
func (r Row) Filled() int {
	n := 0
	for _, c := range r {
		if c.Valid {
			n++
		}
	}
	return n
}
