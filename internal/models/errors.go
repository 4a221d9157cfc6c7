package models

import (
	"encoding/json"
	"fmt"
)

// RowError reports a row that was skipped without aborting the batch.
type RowError struct {
	Row    int
	Reason string
	Err    error
}

func (e RowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("row %d: %s: %v", e.Row, e.Reason, e.Err)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

func (e RowError) Unwrap() error {
	return e.Err
}

func (e RowError) MarshalJSON() ([]byte, error) {
	out := struct {
		Row    int    `json:"row"`
		Reason string `json:"reason"`
		Detail string `json:"detail,omitempty"`
	}{Row: e.Row, Reason: e.Reason}
	if e.Err != nil {
		out.Detail = e.Err.Error()
	}
	return json.Marshal(out)
}
