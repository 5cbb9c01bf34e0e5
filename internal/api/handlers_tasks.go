package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nhle/timetrack/internal/model"
)

type createTaskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

type taskResponse struct {
	Task *model.Task `json:"task"`
}

type tasksResponse struct {
	Tasks []model.Task `json:"tasks"`
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.store.ListTasks(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasksResponse{Tasks: tasks})
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	task := &model.Task{
		UserID:      currentUser(r),
		Title:       req.Title,
		Description: req.Description,
	}
	if err := s.store.CreateTask(r.Context(), task); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, taskResponse{Task: task})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.store.GetTask(r.Context(), mux.Vars(r)["id"], currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, taskResponse{Task: task})
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var upd model.TaskUpdate
	if err := decodeJSON(r, &upd); err != nil {
		writeError(w, r, err)
		return
	}

	task, err := s.store.UpdateTask(r.Context(), mux.Vars(r)["id"], currentUser(r), upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, taskResponse{Task: task})
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteTask(r.Context(), mux.Vars(r)["id"], currentUser(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successBody{Success: true})
}
