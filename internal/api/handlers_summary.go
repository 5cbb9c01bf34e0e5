package api

import (
	"net/http"
	"time"

	"github.com/nhle/timetrack/internal/model"
	"github.com/nhle/timetrack/internal/summary"
)

// handleSummary serves the summary for ?date=YYYY-MM-DD, today when
// absent. Days are bounded in the server's configured location unless
// client time zones are enabled and ?tz names an IANA zone.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	loc := s.summary.Location()
	if tz := r.URL.Query().Get("tz"); tz != "" && s.allowClientTZ {
		l, err := time.LoadLocation(tz)
		if err != nil {
			writeError(w, r, model.Invalid("tz", "must be an IANA time zone name"))
			return
		}
		loc = l
	}

	var date time.Time
	if ds := r.URL.Query().Get("date"); ds != "" {
		d, err := summary.ParseDate(ds, loc)
		if err != nil {
			writeError(w, r, err)
			return
		}
		date = d
	}

	sum, err := s.summary.Summarize(r.Context(), currentUser(r), date, loc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
