package main

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/basekick-labs/flightdata/internal/config"
	"github.com/basekick-labs/flightdata/internal/ingest"
	"github.com/basekick-labs/flightdata/pkg/models"
	"github.com/klauspost/compress/gzip"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rocketJSON = `{
	"name": "Nova",
	"endianess": "Big",
	"sensors": [
		{"name": "imu", "id": 1, "values": [
			{"name": "x", "data_type": "int_16"},
			{"name": "y", "data_type": "int_16"}
		]},
		{"name": "baro", "id": 2, "values": [
			{"name": "p", "data_type": "uint_32"}
		]}
	]
}`

// workspace creates a directory holding the rocket configuration, makes it
// the working directory and the local storage root
func workspace(t *testing.T) (string, *models.RocketConfig) {
	t.Helper()
	dir := t.TempDir()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(oldWd) })
	t.Setenv("FLIGHTDATA_STORAGE_LOCAL_PATH", dir)
	t.Setenv("FLIGHTDATA_LOG_LEVEL", "error")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "rocket.json"), []byte(rocketJSON), 0644))
	rocket, err := config.DecodeRocketConfig(strings.NewReader(rocketJSON))
	require.NoError(t, err)
	return dir, rocket
}

func imu(x, y int16) models.Packet {
	return models.Packet{ID: 1, Values: []models.TypedValue{models.NewInt16(x), models.NewInt16(y)}}
}

func baro(p uint32) models.Packet {
	return models.Packet{ID: 2, Values: []models.TypedValue{models.NewUint32(p)}}
}

func encode(t *testing.T, rocket *models.RocketConfig, packets ...models.Packet) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := ingest.NewPacketEncoder(&buf, rocket)
	for _, p := range packets {
		require.NoError(t, enc.Encode(p))
	}
	return buf.Bytes()
}

func writeFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0644))
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunUsage(t *testing.T) {
	code, _, stderr := runCLI(t)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "Usage:")

	code, _, stderr = runCLI(t, "launch")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, `unknown command "launch"`)

	code, stdout, _ := runCLI(t, "version")
	assert.Equal(t, exitOK, code)
	assert.Equal(t, "flightdata dev\n", stdout)
}

func TestCheck(t *testing.T) {
	workspace(t)

	code, stdout, stderr := runCLI(t, "check", "rocket.json")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "Rocket:     Nova\n")
	assert.Contains(t, stdout, "Byte order: Big\n")
	assert.Contains(t, stdout, "Sensors:    2\n")
	assert.Contains(t, stdout, "  imu (id 1, 5 bytes): x int_16, y int_16\n")
	assert.Contains(t, stdout, "  baro (id 2, 5 bytes): p uint_32\n")
	assert.Contains(t, stdout, "Columns:    3\n")
	assert.Contains(t, stdout, "Configuration is valid")
}

func TestCheckInvalid(t *testing.T) {
	dir, _ := workspace(t)
	writeFile(t, dir, "dup.json", []byte(`{"name":"r","endianess":"Big","sensors":[
		{"name":"a","id":3,"values":[]},{"name":"b","id":3,"values":[]}]}`))

	code, stdout, stderr := runCLI(t, "check", "dup.json")
	assert.Equal(t, exitError, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "configuration is invalid")
	assert.Contains(t, stderr, "multiple sensors with ID 3")

	code, _, _ = runCLI(t, "check")
	assert.Equal(t, exitUsage, code)
}

func TestConvertCSVFile(t *testing.T) {
	dir, rocket := workspace(t)
	writeFile(t, dir, "flight.bin", encode(t, rocket, imu(1, 2), baro(100), imu(3, -4), baro(101)))

	code, _, stderr := runCLI(t, "convert", "--config", "rocket.json", "flight.bin", "out/flight.csv")
	require.Equal(t, exitOK, code, stderr)

	got, err := os.ReadFile(filepath.Join(dir, "out", "flight.csv"))
	require.NoError(t, err)
	assert.Equal(t, "imu_x,imu_y,baro_p\n1,2,100\n3,-4,101\n", string(got))
}

func TestConvertStdout(t *testing.T) {
	dir, rocket := workspace(t)
	// a lone baro packet at the end leaves the imu cells empty
	writeFile(t, dir, "flight.bin", encode(t, rocket, imu(1, 2), baro(100), baro(101)))

	code, stdout, stderr := runCLI(t, "convert", "--config", "rocket.json", "--to", "csv", "flight.bin", "-")
	require.Equal(t, exitOK, code, stderr)
	assert.Equal(t, "imu_x,imu_y,baro_p\n1,2,100\n,,101\n", stdout)
}

func TestConvertGzipInput(t *testing.T) {
	dir, rocket := workspace(t)

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(encode(t, rocket, imu(5, 6), baro(7)))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	writeFile(t, dir, "flight.bin.gz", buf.Bytes())

	code, stdout, stderr := runCLI(t, "convert", "--config", "rocket.json", "flight.bin.gz", "-")
	require.Equal(t, exitOK, code, stderr)
	assert.Equal(t, "imu_x,imu_y,baro_p\n5,6,7\n", stdout)
}

func TestConvertColumns(t *testing.T) {
	dir, rocket := workspace(t)
	writeFile(t, dir, "flight.bin", encode(t, rocket, imu(1, 2), baro(100), imu(3, 4)))

	code, stdout, stderr := runCLI(t, "convert", "--config", "rocket.json", "--columns", "baro:p,imu:x", "flight.bin", "-")
	require.Equal(t, exitOK, code, stderr)
	// configuration order, same row count as the full table
	assert.Equal(t, "imu_x,baro_p\n1,100\n3,\n", stdout)

	code, _, stderr = runCLI(t, "convert", "--config", "rocket.json", "--columns", "imu_z", "flight.bin", "-")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "imu_z")
}

func TestConvertRejectsBinaryToStdout(t *testing.T) {
	workspace(t)
	code, _, stderr := runCLI(t, "convert", "--config", "rocket.json", "--to", "parquet", "flight.bin", "-")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "cannot be written to stdout")
}

func TestConvertRequiresConfig(t *testing.T) {
	workspace(t)
	code, _, stderr := runCLI(t, "convert", "flight.bin", "-")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "--config is required")
}

func TestConvertAbortKeepsWrittenRows(t *testing.T) {
	dir, rocket := workspace(t)
	data := encode(t, rocket, imu(1, 2), baro(100), imu(3, 4))
	data = append(data, 0x09)
	data = append(data, encode(t, rocket, baro(101))...)
	writeFile(t, dir, "flight.bin", data)

	code, _, stderr := runCLI(t, "convert", "--config", "rocket.json", "flight.bin", "flight.csv")
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "conversion stopped after 1 rows")
	assert.Contains(t, stderr, "invalid packet id 9")

	got, err := os.ReadFile(filepath.Join(dir, "flight.csv"))
	require.NoError(t, err)
	assert.Equal(t, "imu_x,imu_y,baro_p\n1,2,100\n", string(got))
}

func TestConvertKeepGoing(t *testing.T) {
	dir, rocket := workspace(t)
	data := encode(t, rocket, imu(1, 2), baro(100), imu(3, 4))
	data = append(data, 0x09)
	data = append(data, encode(t, rocket, baro(101))...)
	writeFile(t, dir, "flight.bin", data)

	code, stdout, stderr := runCLI(t, "convert", "--config", "rocket.json", "--keep-going",
		"--metrics", "flight.prom", "flight.bin", "-")
	require.Equal(t, exitOK, code, stderr)
	// the accumulated imu values survive the error
	assert.Equal(t, "imu_x,imu_y,baro_p\n1,2,100\n3,4,101\n", stdout)

	prom, err := os.ReadFile(filepath.Join(dir, "flight.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(prom), "flightdata_packets_total 4\n")
	assert.Contains(t, string(prom), "flightdata_rows_written_total 2\n")
	assert.Contains(t, string(prom), `flightdata_errors_total{kind="invalid_id"} 1`)
}

func TestConvertKeepGoingMaxErrors(t *testing.T) {
	dir, rocket := workspace(t)
	data := encode(t, rocket, imu(1, 2))
	data = append(data, 0x09, 0x0a)
	writeFile(t, dir, "flight.bin", data)

	code, _, stderr := runCLI(t, "convert", "--config", "rocket.json", "--keep-going", "--max-errors", "1",
		"flight.bin", "-")
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "too many decode errors")
}

func TestConvertSQLite(t *testing.T) {
	dir, rocket := workspace(t)
	writeFile(t, dir, "flight.bin", encode(t, rocket, imu(1, 2), baro(100), imu(3, 4), baro(101), imu(5, 6)))

	code, _, stderr := runCLI(t, "convert", "--config", "rocket.json", "--to", "sqlite", "flight.bin", "flight.db")
	require.Equal(t, exitOK, code, stderr)

	db, err := sql.Open("sqlite3", filepath.Join(dir, "flight.db"))
	require.NoError(t, err)
	defer db.Close()

	var rows, nulls int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "Nova"`).Scan(&rows))
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "Nova" WHERE "baro_p" IS NULL`).Scan(&nulls))
	assert.Equal(t, 3, rows)
	assert.Equal(t, 1, nulls)

	var source string
	require.NoError(t, db.QueryRow(
		`SELECT value FROM flightdata_metadata WHERE tbl = 'Nova' AND key = 'source'`).Scan(&source))
	assert.Equal(t, "flight.bin", source)
}

func TestConvertParquet(t *testing.T) {
	dir, rocket := workspace(t)
	writeFile(t, dir, "flight.bin", encode(t, rocket, imu(1, 2), baro(100)))

	code, _, stderr := runCLI(t, "convert", "--config", "rocket.json", "--to", "parquet", "flight.bin", "flight.parquet")
	require.Equal(t, exitOK, code, stderr)

	got, err := os.ReadFile(filepath.Join(dir, "flight.parquet"))
	require.NoError(t, err)
	require.Greater(t, len(got), 8)
	assert.Equal(t, "PAR1", string(got[:4]))
	assert.Equal(t, "PAR1", string(got[len(got)-4:]))
}

func TestReport(t *testing.T) {
	dir, rocket := workspace(t)
	writeFile(t, dir, "flight.bin", encode(t, rocket, imu(1, 20), imu(-3, 4)))

	code, stdout, stderr := runCLI(t, "report", "--config", "rocket.json", "flight.bin", "-")
	require.Equal(t, exitOK, code, stderr)

	assert.True(t, strings.HasPrefix(stdout, "\\documentclass{article}\n\n\\begin{document} "), stdout)
	assert.Contains(t, stdout, "The Nova rocket has 2 sensors: imu, baro.")
	assert.Contains(t, stdout, "The x value has 2 samples. ")
	assert.Contains(t, stdout, "The minimum value is -3. ")
	assert.Contains(t, stdout, "The maximum value is 20. ")
	assert.Contains(t, stdout, "No data was recorded for this sensor. ")
	assert.True(t, strings.HasSuffix(stdout, "\\end{document} "), stdout)
}

func TestReportRejectsColumns(t *testing.T) {
	dir, rocket := workspace(t)
	writeFile(t, dir, "flight.bin", encode(t, rocket, imu(1, 2), baro(100)))

	code, stdout, stderr := runCLI(t, "report", "--config", "rocket.json", "--columns", "imu_x", "flight.bin", "-")
	assert.Equal(t, exitUsage, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "flag provided but not defined: -columns")
}

func TestUnknownFlagIsUsageError(t *testing.T) {
	workspace(t)
	code, _, _ := runCLI(t, "convert", "--colour", "red", "a", "b")
	assert.Equal(t, exitUsage, code)
}

func TestReportToFile(t *testing.T) {
	dir, rocket := workspace(t)
	writeFile(t, dir, "flight.bin", encode(t, rocket, baro(9)))

	code, _, stderr := runCLI(t, "report", "--config", "rocket.json", "flight.bin", "reports/flight.tex")
	require.Equal(t, exitOK, code, stderr)

	got, err := os.ReadFile(filepath.Join(dir, "reports", "flight.tex"))
	require.NoError(t, err)
	assert.Contains(t, string(got), "The p value has 1 samples. ")
}
