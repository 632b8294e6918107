package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrRateLimited   = errors.New("rate limited")
	ErrUpstream      = errors.New("upstream unavailable")
	ErrContextDone   = errors.New("context cancelled")
)

// DataQualityError marks a market that could not be evaluated because a
// required snapshot field is missing or malformed. Calculators return it so
// the aggregator can log the skip and keep going; it never aborts a cycle.
type DataQualityError struct {
	MarketID string
	Field    string
	Reason   string
}

func (e *DataQualityError) Error() string {
	return fmt.Sprintf("data quality: market %s field %s: %s", e.MarketID, e.Field, e.Reason)
}

// IsDataQuality reports whether err is a DataQualityError.
func IsDataQuality(err error) bool {
	var dq *DataQualityError
	return errors.As(err, &dq)
}
