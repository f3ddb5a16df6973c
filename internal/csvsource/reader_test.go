package csvsource

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/jonathan/jobgeo/internal/types"
)

const sampleCSV = `id,job_id,title,workplace_municipality,workplace_longitude,workplace_latitude
1,29500001,Backend-utvecklare,Stockholm,18.0686,59.3293
2,29500002,Lagerarbetare,Göteborg,,
3,29500003,Sjuksköterska,Malmö,13.0038,55.6050
`

func readAll(t *testing.T, data []byte, opts Options) ([]Row, ReadStats, error) {
	t.Helper()
	var rows []Row
	stats, err := ReadFrom(context.Background(), bytes.NewReader(data), opts, func(r Row) error {
		rows = append(rows, r)
		return nil
	})
	return rows, stats, err
}

func TestRead_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o600))

	var rows []Row
	stats, err := Read(context.Background(), path, Options{Required: []string{"job_id"}}, func(r Row) error {
		rows = append(rows, r)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, EncodingUTF8, stats.Encoding)
	assert.Equal(t, 3, stats.Rows)
	require.Len(t, rows, 3)

	first := rows[0]
	assert.NoError(t, first.Err)
	assert.Equal(t, 2, first.Line)
	assert.Equal(t, types.SourceFile, first.Record.Kind)
	assert.Equal(t, "row 1", first.Record.Ref)
	assert.Equal(t, "29500001", first.Record.File["job_id"])
	assert.Equal(t, "18.0686", first.Record.File["workplace_longitude"])
	assert.Equal(t, "Göteborg", rows[1].Record.File["workplace_municipality"])
	assert.Equal(t, "", rows[1].Record.File["workplace_latitude"])
}

func TestRead_MissingFile(t *testing.T) {
	_, err := Read(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), Options{}, func(Row) error { return nil })
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRead_Sample(t *testing.T) {
	rows, stats, err := readAll(t, []byte(sampleCSV), Options{Sample: 2})

	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.True(t, stats.Sampled)
}

func TestRead_EmptyAndMissingColumn(t *testing.T) {
	_, _, err := readAll(t, nil, Options{})
	assert.ErrorIs(t, err, ErrNoHeader)

	_, _, err = readAll(t, []byte("id,title\n1,x\n"), Options{Required: []string{"job_id"}})
	var missing *MissingColumnError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "job_id", missing.Column)
}

func TestRead_PadAndTruncate(t *testing.T) {
	data := "job_id,title,workplace_city\n1,short\n2,long,Umeå,extra\n"
	rows, stats, err := readAll(t, []byte(data), Options{})

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, map[string]string{"job_id": "1", "title": "short", "workplace_city": ""}, rows[0].Record.File)
	assert.Equal(t, map[string]string{"job_id": "2", "title": "long", "workplace_city": "Umeå"}, rows[1].Record.File)
	assert.Equal(t, 1, stats.Padded)
	assert.Equal(t, 1, stats.Trimmed)
}

func TestRead_Encodings(t *testing.T) {
	utf16le, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(sampleCSV))
	require.NoError(t, err)
	utf16be, err := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(sampleCSV))
	require.NoError(t, err)
	latin1, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(sampleCSV))
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"utf-8", []byte(sampleCSV), EncodingUTF8},
		{"utf-8 bom", append([]byte{0xEF, 0xBB, 0xBF}, sampleCSV...), EncodingUTF8BOM},
		{"utf-16le", utf16le, EncodingUTF16LE},
		{"utf-16be", utf16be, EncodingUTF16BE},
		{"latin-1", latin1, EncodingLatin1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, stats, err := readAll(t, tt.data, Options{Required: []string{"id", "job_id"}})

			require.NoError(t, err)
			assert.Equal(t, tt.want, stats.Encoding)
			require.Len(t, rows, 3)
			assert.Equal(t, "Göteborg", rows[1].Record.File["workplace_municipality"])
			assert.Equal(t, "Sjuksköterska", rows[2].Record.File["title"])
		})
	}
}

func TestRead_LazyQuotes(t *testing.T) {
	data := "job_id,title\n1,ok\n2,\"broken\"x\"\n3,fine\n"
	rows, _, err := readAll(t, []byte(data), Options{})

	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, r := range rows {
		assert.NoError(t, r.Err)
	}
	assert.Equal(t, `broken"x`, rows[1].Record.File["title"])
	assert.Equal(t, "row 3", rows[2].Record.Ref)
	assert.Equal(t, "3", rows[2].Record.File["job_id"])
}

func TestRead_HandlerErrorStops(t *testing.T) {
	boom := errors.New("stop")
	calls := 0
	_, err := ReadFrom(context.Background(), strings.NewReader(sampleCSV), Options{}, func(Row) error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestRead_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReadFrom(ctx, strings.NewReader(sampleCSV), Options{}, func(Row) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidUTF8Prefix(t *testing.T) {
	assert.True(t, validUTF8Prefix([]byte("Malmö")))
	assert.True(t, validUTF8Prefix([]byte("Malm\xc3")), "rune cut at the sniff boundary")
	assert.False(t, validUTF8Prefix([]byte("Malm\xf6 stad")))
}
