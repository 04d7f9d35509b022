package models

import (
	"errors"
	"fmt"
)

// Outcome kinds of an analysis. Use errors.Is against these.
var (
	ErrDataUnavailable     = errors.New("data unavailable")
	ErrInsufficientData    = errors.New("insufficient data")
	ErrAnalysisUnavailable = errors.New("analysis unavailable")
)

// AnalysisError is the typed failure returned by the engine.
type AnalysisError struct {
	Kind     error
	Symbol   string
	Detail   string
	Rows     int
	Required int
	Err      error
}

func (e *AnalysisError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Symbol, e.Kind)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *AnalysisError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// DataUnavailable builds an ErrDataUnavailable failure.
func DataUnavailable(symbol, detail string, cause error) *AnalysisError {
	return &AnalysisError{Kind: ErrDataUnavailable, Symbol: symbol, Detail: detail, Err: cause}
}

// InsufficientData builds an ErrInsufficientData failure with the row counts.
func InsufficientData(symbol string, rows, required int) *AnalysisError {
	return &AnalysisError{
		Kind:     ErrInsufficientData,
		Symbol:   symbol,
		Detail:   fmt.Sprintf("%d usable rows, need %d", rows, required),
		Rows:     rows,
		Required: required,
	}
}

// Unavailable collapses any other failure into ErrAnalysisUnavailable.
func Unavailable(symbol string, cause error) *AnalysisError {
	return &AnalysisError{Kind: ErrAnalysisUnavailable, Symbol: symbol, Err: cause}
}

// Classify returns the outcome kind of err: one of the three sentinels.
func Classify(err error) error {
	switch {
	case errors.Is(err, ErrDataUnavailable):
		return ErrDataUnavailable
	case errors.Is(err, ErrInsufficientData):
		return ErrInsufficientData
	default:
		return ErrAnalysisUnavailable
	}
}
