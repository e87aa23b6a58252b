package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertDateTime_DriverLayouts(t *testing.T) {
	want := time.Date(2025, 1, 1, 2, 0, 0, 0, time.UTC)

	cases := map[string]interface{}{
		"time":          want.In(time.FixedZone("CET", 3600)),
		"rfc3339":       "2025-01-01T02:00:00Z",
		"sqlite":        "2025-01-01 02:00:00+00:00",
		"naive":         "2025-01-01 02:00:00",
		"naive bytes":   []byte("2025-01-01 02:00:00"),
		"offset string": "2025-01-01T03:00:00+01:00",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := ConvertDateTime(in)
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "got %v", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestConvertDateTime_Rejects(t *testing.T) {
	_, err := ConvertDateTime(nil)
	assert.Error(t, err)
	_, err = ConvertDateTime("yesterday")
	assert.Error(t, err)
	_, err = ConvertDateTime(42)
	assert.Error(t, err)
}

func TestRowToOrder(t *testing.T) {
	row := map[string]interface{}{
		"id":         int64(7),
		"amount":     []byte("12.50"),
		"created_at": "2025-01-01 01:00:00",
	}
	o, err := RowToOrder(row, "id", "amount", "created_at")
	require.NoError(t, err)
	assert.Equal(t, int64(7), o.ID)
	assert.Equal(t, 12.5, o.Amount)
	assert.True(t, o.CreatedAt.Equal(time.Date(2025, 1, 1, 1, 0, 0, 0, time.UTC)))

	row["amount"] = "n/a"
	_, err = RowToOrder(row, "id", "amount", "created_at")
	assert.ErrorContains(t, err, "column amount")
}
