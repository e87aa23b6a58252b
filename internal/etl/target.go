package etl

import (
	"fmt"
	"strings"
	"time"
)

// Target is the object key an artifact is published under. It depends only
// on the run date and the artifact name, never on the upload outcome.
type Target struct {
	Prefix string
	Year   int
	Month  int
	Day    int
	Name   string
}

// NewTarget partitions by the UTC calendar date of at.
func NewTarget(prefix string, at time.Time, name string) Target {
	at = at.UTC()
	return Target{
		Prefix: strings.Trim(prefix, "/"),
		Year:   at.Year(),
		Month:  int(at.Month()),
		Day:    at.Day(),
		Name:   name,
	}
}

// Partition is the date directory, e.g. raw_orders/year=2025/month=1/day=1.
func (t Target) Partition() string {
	return fmt.Sprintf("%s/year=%d/month=%d/day=%d", t.Prefix, t.Year, t.Month, t.Day)
}

func (t Target) Key() string {
	return t.Partition() + "/" + t.Name
}

func (t Target) String() string { return t.Key() }
