package models

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
)

// ValueKind is the scalar type of a single value in a sensor packet
type ValueKind int

const (
	KindInt8 ValueKind = iota + 1
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
)

// AllKinds lists every ValueKind in declaration order
var AllKinds = []ValueKind{
	KindInt8, KindInt16, KindInt32, KindInt64,
	KindUint8, KindUint16, KindUint32, KindUint64,
	KindFloat32, KindFloat64,
}

var kindTags = map[ValueKind]string{
	KindInt8:    "int_8",
	KindInt16:   "int_16",
	KindInt32:   "int_32",
	KindInt64:   "int_64",
	KindUint8:   "uint_8",
	KindUint16:  "uint_16",
	KindUint32:  "uint_32",
	KindUint64:  "uint_64",
	KindFloat32: "float_32",
	KindFloat64: "float_64",
}

// ParseValueKind converts a configuration tag (e.g. "float_32") to a ValueKind
func ParseValueKind(tag string) (ValueKind, error) {
	for k, t := range kindTags {
		if t == tag {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown data_type %q", tag)
}

// String returns the configuration tag of the kind
func (k ValueKind) String() string {
	if t, ok := kindTags[k]; ok {
		return t
	}
	return fmt.Sprintf("ValueKind(%d)", int(k))
}

// Valid reports whether k is one of the ten known kinds
func (k ValueKind) Valid() bool {
	_, ok := kindTags[k]
	return ok
}

// Width returns the number of bytes the kind occupies on the wire
func (k ValueKind) Width() int {
	switch k {
	case KindInt8, KindUint8:
		return 1
	case KindInt16, KindUint16:
		return 2
	case KindInt32, KindUint32, KindFloat32:
		return 4
	case KindInt64, KindUint64, KindFloat64:
		return 8
	default:
		return 0
	}
}

// Signed reports whether the kind is a signed integer
func (k ValueKind) Signed() bool {
	return k >= KindInt8 && k <= KindInt64
}

// Unsigned reports whether the kind is an unsigned integer
func (k ValueKind) Unsigned() bool {
	return k >= KindUint8 && k <= KindUint64
}

// Float reports whether the kind is an IEEE-754 float
func (k ValueKind) Float() bool {
	return k == KindFloat32 || k == KindFloat64
}

// MarshalJSON encodes the kind as its configuration tag
func (k ValueKind) MarshalJSON() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid value kind %d", int(k))
	}
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a configuration tag
func (k *ValueKind) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err != nil {
		return fmt.Errorf("data_type must be a string: %w", err)
	}
	parsed, err := ParseValueKind(tag)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Endianness is the byte order applied to every multi-byte value in a stream
type Endianness int

const (
	BigEndian Endianness = iota // default
	LittleEndian
)

// String returns "Big" or "Little"
func (e Endianness) String() string {
	if e == LittleEndian {
		return "Little"
	}
	return "Big"
}

// ByteOrder returns the encoding/binary order for e
func (e Endianness) ByteOrder() binary.ByteOrder {
	if e == LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// MarshalJSON encodes the byte order as "Big" or "Little"
func (e Endianness) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.String())
}

// UnmarshalJSON accepts "Big" or "Little"
func (e *Endianness) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("endianess must be a string: %w", err)
	}
	switch s {
	case "Big":
		*e = BigEndian
	case "Little":
		*e = LittleEndian
	default:
		return fmt.Errorf("unknown endianess %q (expected \"Big\" or \"Little\")", s)
	}
	return nil
}

// ValueConfig describes one scalar value inside a sensor packet
type ValueConfig struct {
	Name     string    `json:"name"`
	DataType ValueKind `json:"data_type"`
}

// SensorConfig describes a group of values that are read at the same time.
// Value order is the wire order of the packet payload and the column order
// of the sensor's columns.
type SensorConfig struct {
	Name   string        `json:"name"`
	ID     uint8         `json:"id"`
	Values []ValueConfig `json:"values"`
}

// PayloadSize returns the number of payload bytes following the ID byte
func (s *SensorConfig) PayloadSize() int {
	n := 0
	for _, v := range s.Values {
		n += v.DataType.Width()
	}
	return n
}

// RocketConfig is the full description of a flight computer's telemetry stream
type RocketConfig struct {
	Name        string         `json:"name"`
	Sensors     []SensorConfig `json:"sensors"`
	Endianness  Endianness     `json:"endianess"`
	DisplayName string         `json:"display_name,omitempty"`
	Description string         `json:"description,omitempty"`

	// sensor ID -> index into Sensors, built by Validate
	index map[uint8]int
}

// ErrDuplicateSensorID is matched by errors.Is for a *DuplicateSensorIDError
var ErrDuplicateSensorID = errors.New("duplicate sensor id")

// DuplicateSensorIDError reports two sensors sharing one ID
type DuplicateSensorIDError struct {
	ID     uint8
	First  string
	Second string
}

func (e *DuplicateSensorIDError) Error() string {
	return fmt.Sprintf("multiple sensors with ID %d (%q and %q)", e.ID, e.First, e.Second)
}

func (e *DuplicateSensorIDError) Is(target error) bool {
	return target == ErrDuplicateSensorID
}

// Validate checks that no two sensors share an ID and that every value has a
// known kind. On success the ID lookup index is built.
func (c *RocketConfig) Validate() error {
	index := make(map[uint8]int, len(c.Sensors))
	for i := range c.Sensors {
		s := &c.Sensors[i]
		if prev, ok := index[s.ID]; ok {
			return &DuplicateSensorIDError{ID: s.ID, First: c.Sensors[prev].Name, Second: s.Name}
		}
		index[s.ID] = i
		for _, v := range s.Values {
			if !v.DataType.Valid() {
				return fmt.Errorf("sensor %q value %q: invalid data_type", s.Name, v.Name)
			}
		}
	}
	c.index = index
	return nil
}

// SensorByID returns the sensor with the given ID
func (c *RocketConfig) SensorByID(id uint8) (*SensorConfig, bool) {
	if c.index != nil {
		i, ok := c.index[id]
		if !ok {
			return nil, false
		}
		return &c.Sensors[i], true
	}
	for i := range c.Sensors {
		if c.Sensors[i].ID == id {
			return &c.Sensors[i], true
		}
	}
	return nil, false
}

// DisplayTitle returns the display name, falling back to the name
func (c *RocketConfig) DisplayTitle() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.Name
}

// ByteOrder returns the stream byte order
func (c *RocketConfig) ByteOrder() binary.ByteOrder {
	return c.Endianness.ByteOrder()
}

// ColumnName returns the column identity of a sensor value
func ColumnName(sensor *SensorConfig, value *ValueConfig) string {
	return sensor.Name + "_" + value.Name
}

// Columns returns every column in configuration order: sensors in declared
// order, values within each sensor in declared order.
func (c *RocketConfig) Columns() []Column {
	var cols []Column
	for i := range c.Sensors {
		s := &c.Sensors[i]
		for j := range s.Values {
			v := &s.Values[j]
			cols = append(cols, Column{
				Name:     ColumnName(s, v),
				SensorID: s.ID,
				Sensor:   s.Name,
				Value:    v.Name,
				Kind:     v.DataType,
			})
		}
	}
	return cols
}

// ColumnNames returns the names of Columns()
func (c *RocketConfig) ColumnNames() []string {
	cols := c.Columns()
	names := make([]string, len(cols))
	for i, col := range cols {
		names[i] = col.Name
	}
	return names
}
