package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/nhle/timetrack/internal/model"
)

type startTimeLogRequest struct {
	TaskID    string `json:"taskId"`
	StartTime string `json:"startTime"`
}

type timeLogResponse struct {
	TimeLog *model.TimeLog `json:"timeLog"`
}

type timeLogsResponse struct {
	TimeLogs []model.TimeLog `json:"timeLogs"`
}

func (s *Server) handleListTimeLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.tracker.List(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if logs == nil {
		logs = []model.TimeLog{}
	}
	writeJSON(w, http.StatusOK, timeLogsResponse{TimeLogs: logs})
}

func (s *Server) handleStartTimeLog(w http.ResponseWriter, r *http.Request) {
	var req startTimeLogRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.TaskID == "" {
		writeError(w, r, model.Invalid("taskId", "is required"))
		return
	}
	startTime, err := time.Parse(time.RFC3339Nano, req.StartTime)
	if err != nil {
		writeError(w, r, model.Invalid("startTime", "must be an RFC 3339 timestamp"))
		return
	}

	timeLog, err := s.tracker.Start(r.Context(), req.TaskID, currentUser(r), startTime)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, timeLogResponse{TimeLog: timeLog})
}

func (s *Server) handleStopTimeLog(w http.ResponseWriter, r *http.Request) {
	timeLog, err := s.tracker.Stop(r.Context(), mux.Vars(r)["id"], currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, timeLogResponse{TimeLog: timeLog})
}

func (s *Server) handleDeleteTimeLog(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.Delete(r.Context(), mux.Vars(r)["id"], currentUser(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successBody{Success: true})
}
