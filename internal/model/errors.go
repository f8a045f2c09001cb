package model

import (
	"errors"
	"fmt"
)

// ErrEmptySeries is returned when no usable rows remain after normalization.
var ErrEmptySeries = errors.New("empty price series")

// SchemaError reports a raw table that lacks a required column.
type SchemaError struct {
	Column  string
	Headers []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: missing %s column (have %v)", e.Column, e.Headers)
}

// FetchError reports that the market-data source returned nothing usable.
type FetchError struct {
	Symbol string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch %s: no data returned", e.Symbol)
	}
	return fmt.Sprintf("fetch %s: %v", e.Symbol, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
