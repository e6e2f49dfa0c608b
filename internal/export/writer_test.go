package export

import (
	"bytes"
	"testing"

	"github.com/basekick-labs/flightdata/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture: imu (x int16, y float32) and gps (sats uint64)
var testColumns = []models.Column{
	{Name: "imu_x", SensorID: 1, Sensor: "imu", Value: "x", Kind: models.KindInt16},
	{Name: "imu_y", SensorID: 1, Sensor: "imu", Value: "y", Kind: models.KindFloat32},
	{Name: "gps_sats", SensorID: 2, Sensor: "gps", Value: "sats", Kind: models.KindUint64},
}

func valid(v models.TypedValue) models.Cell { return models.Cell{Value: v, Valid: true} }

func testRows() []models.Row {
	return []models.Row{
		{valid(models.NewInt16(-1)), valid(models.NewFloat32(1.5)), valid(models.NewUint64(7))},
		{valid(models.NewInt16(2)), {}, valid(models.NewUint64(18446744073709551615))},
		{{}, valid(models.NewFloat32(-0.25)), {}},
	}
}

func writeAll(t *testing.T, w RowWriter) {
	t.Helper()
	require.NoError(t, w.WriteHeader(testColumns))
	for _, row := range testRows() {
		require.NoError(t, w.WriteRow(row))
	}
	require.NoError(t, w.Close())
}

func TestParseFormat(t *testing.T) {
	for _, name := range []string{"csv", "Parquet", "MSGPACK", "sqlite"} {
		_, err := ParseFormat(name)
		assert.NoError(t, err, name)
	}
	_, err := ParseFormat("xlsx")
	assert.Error(t, err)
}

func TestFormatProperties(t *testing.T) {
	assert.True(t, FormatCSV.Streamable())
	assert.True(t, FormatMsgpack.Streamable())
	assert.False(t, FormatParquet.Streamable())
	assert.False(t, FormatSQLite.Streamable())

	assert.Equal(t, ".csv", FormatCSV.Extension())
	assert.Equal(t, ".parquet", FormatParquet.Extension())
	assert.Equal(t, ".msgpack", FormatMsgpack.Extension())
	assert.Equal(t, ".db", FormatSQLite.Extension())
}

func TestNewWriter(t *testing.T) {
	var buf bytes.Buffer
	for _, f := range []Format{FormatCSV, FormatParquet, FormatMsgpack} {
		w, err := NewWriter(f, &buf, Options{})
		require.NoError(t, err, f)
		assert.NotNil(t, w)
	}

	_, err := NewWriter(FormatSQLite, &buf, Options{})
	assert.Error(t, err, "sqlite needs a file")

	_, err = NewWriter("xml", &buf, Options{})
	assert.Error(t, err)

	_, err = NewWriter(FormatParquet, &buf, Options{ParquetCompression: "brotli9000"})
	assert.Error(t, err)
}

func TestCSVWriter(t *testing.T) {
	var buf bytes.Buffer
	writeAll(t, NewCSVWriter(&buf))

	assert.Equal(t, "imu_x,imu_y,gps_sats\n"+
		"-1,1.50000000,7\n"+
		"2,,18446744073709551615\n"+
		",-0.25000000,\n", buf.String())
}

func TestCSVWriterRowLength(t *testing.T) {
	w := NewCSVWriter(&bytes.Buffer{})
	require.NoError(t, w.WriteHeader(testColumns))
	assert.Error(t, w.WriteRow(models.Row{{}}))
}

func TestCSVWriterQuotesSpecialNames(t *testing.T) {
	columns := []models.Column{
		{Name: "gps_lat,deg", Kind: models.KindInt8},
		{Name: `imu_"x"`, Kind: models.KindInt8},
		{Name: " baro_p", Kind: models.KindInt8},
		{Name: "plain", Kind: models.KindInt8},
	}
	var buf bytes.Buffer
	w := NewCSVWriter(&buf)
	require.NoError(t, w.WriteHeader(columns))
	require.NoError(t, w.WriteRow(models.Row{valid(models.NewInt8(1)), {}, valid(models.NewInt8(-2)), {}}))
	require.NoError(t, w.Close())

	assert.Equal(t, `"gps_lat,deg","imu_""x"""," baro_p",plain`+"\n"+
		"1,,-2,\n", buf.String())
}
