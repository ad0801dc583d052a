package macro

import (
	"io"

	"github.com/goccy/go-json"

	"bumpcount/pkg/counter"
)

// Report is the final state of every store a Session used.
type Report struct {
	Session string       `json:"session"`
	Scope   string       `json:"scope"`
	Policy  string       `json:"policy"`
	Units   []UnitReport `json:"units"`
}

type UnitReport struct {
	Unit     string          `json:"unit"`
	Counters []counter.Entry `json:"counters"`
}

func (s *Session) Report() Report {
	r := Report{
		Session: s.ID.String(),
		Scope:   s.cfg.scope.String(),
		Policy:  s.cfg.policy.String(),
	}
	for _, us := range s.stores.units() {
		r.Policy = us.store.Policy().String()
		r.Units = append(r.Units, UnitReport{Unit: us.unit, Counters: us.store.Snapshot()})
	}
	return r
}

// WriteJSON writes the report as indented JSON followed by a newline.
func (r Report) WriteJSON(w io.Writer) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}
