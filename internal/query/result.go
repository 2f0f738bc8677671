package query

// Row maps a column name to a scalar value.
type Row map[string]any

// Result is the ordered output of one executed request.
type Result struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// NewResult wraps rows in the column set implied by req.
func NewResult(req Request, rows []Row) *Result {
	return &Result{Columns: req.Columns(), Rows: rows}
}

// Empty reports whether the result has no rows.
func (r *Result) Empty() bool {
	return r == nil || len(r.Rows) == 0
}
