package utils

import (
	"fmt"
	"strconv"
	"time"

	"github.com/BartekS5/orderlake/pkg/models"
)

var dateTimeFormats = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00", // modernc sqlite
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// RowToOrder converts a scanned column map into an Order. Column names are
// the ones configured for the source table.
func RowToOrder(row map[string]interface{}, idCol, amountCol, tsCol string) (models.Order, error) {
	var o models.Order
	var err error

	if o.ID, err = ConvertToInt64(row[idCol]); err != nil {
		return o, fmt.Errorf("column %s: %w", idCol, err)
	}
	if o.Amount, err = ConvertToFloat(row[amountCol]); err != nil {
		return o, fmt.Errorf("column %s: %w", amountCol, err)
	}
	if o.CreatedAt, err = ConvertDateTime(row[tsCol]); err != nil {
		return o, fmt.Errorf("column %s: %w", tsCol, err)
	}
	return o, nil
}

// ConvertDateTime normalizes driver time values to UTC. Naive timestamps
// (no zone) are taken as UTC.
func ConvertDateTime(val interface{}) (time.Time, error) {
	switch v := val.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		for _, f := range dateTimeFormats {
			if t, err := time.ParseInLocation(f, v, time.UTC); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("unable to parse datetime: %s", v)
	case []byte:
		return ConvertDateTime(string(v))
	case nil:
		return time.Time{}, fmt.Errorf("datetime is NULL")
	default:
		return time.Time{}, fmt.Errorf("cannot convert %T to datetime", val)
	}
}

func ConvertToInt64(val interface{}) (int64, error) {
	switch v := val.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to int", val)
	}
}

func ConvertToFloat(val interface{}) (float64, error) {
	switch v := val.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(v, 64)
	case []byte:
		return strconv.ParseFloat(string(v), 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to float", val)
	}
}
