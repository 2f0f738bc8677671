// Package semantic talks to the hosted semantic query service and its fallback channels.
package semantic

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rpggio/benefits-portal/internal/query"
)

// WireRequest is the JSON form of a query shared by every channel.
type WireRequest struct {
	Metrics []string      `json:"metrics"`
	GroupBy []WireGroupBy `json:"group_by,omitempty"`
	Where   string        `json:"where,omitempty"`
	OrderBy []WireOrderBy `json:"order_by,omitempty"`
	Limit   int           `json:"limit,omitempty"`
}

type WireGroupBy struct {
	Name  string `json:"name"`
	Grain string `json:"grain,omitempty"`
}

type WireOrderBy struct {
	Name       string `json:"name"`
	Descending bool   `json:"descending,omitempty"`
}

// NewWireRequest renders req for a service speaking dialect d.
func NewWireRequest(req query.Request, d query.Dialect) WireRequest {
	w := WireRequest{
		Metrics: req.Metrics,
		Where:   query.Render(req.Where, d),
		Limit:   req.Limit,
	}
	for _, g := range req.GroupBy {
		w.GroupBy = append(w.GroupBy, WireGroupBy{Name: g.Name, Grain: string(g.Grain)})
	}
	for _, o := range req.OrderBy {
		w.OrderBy = append(w.OrderBy, WireOrderBy{Name: o.Name, Descending: o.Descending})
	}
	return w
}

// ErrMalformedResponse indicates a payload that is not the expected shape.
var ErrMalformedResponse = errors.New("malformed semantic response")

// decodeRows accepts a bare row array or an object wrapping one under data or rows.
func decodeRows(raw []byte) ([]query.Row, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}
	if raw[0] == '[' {
		var rows []query.Row
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		return rows, nil
	}

	var wrapped struct {
		Data  json.RawMessage `json:"data"`
		Rows  json.RawMessage `json:"rows"`
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if msg := errorText(wrapped.Error); msg != "" {
		return nil, &ServiceError{Message: msg}
	}
	switch {
	case len(wrapped.Data) > 0 && !isNull(wrapped.Data):
		return decodeRows(wrapped.Data)
	case len(wrapped.Rows) > 0 && !isNull(wrapped.Rows):
		return decodeRows(wrapped.Rows)
	default:
		return nil, fmt.Errorf("%w: no rows field", ErrMalformedResponse)
	}
}

// errorText extracts a message from an error field that may be a string or an object.
func errorText(raw json.RawMessage) string {
	if len(raw) == 0 || isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return string(raw)
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
