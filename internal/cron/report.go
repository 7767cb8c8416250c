package cron

// RowResult records the outcome of one item handled in a job pass.
type RowResult struct {
	ID      string `json:"id"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

// Report summarizes one job pass.
type Report struct {
	Processed int         `json:"processed"`
	Results   []RowResult `json:"results,omitempty"`
}

func (r *Report) add(id, outcome string) {
	r.Processed++
	r.Results = append(r.Results, RowResult{ID: id, Outcome: outcome})
}

func (r *Report) addError(id string, err error) {
	r.Processed++
	r.Results = append(r.Results, RowResult{ID: id, Outcome: "error", Error: err.Error()})
}
