package handlers

import (
	"errors"
	"net/http"

	"taskapi/internal/models"
)

const (
	msgInvalidID  = "Invalid task ID"
	msgNotFound   = "Task not found"
	msgReadFailed = "Error reading tasks"
	msgCreateFail = "Error creating task"
	msgUpdateFail = "Error updating task"
	msgDeleteFail = "Error deleting task"
	msgDeleteDone = "Task deleted successfully."
)

// ListTasks returns every task in storage order.
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.store.Load(r.Context())
	if err != nil {
		h.respondServerError(w, r, err, msgReadFailed)
		return
	}

	h.respondJSON(w, http.StatusOK, tasks)
}

// GetTask returns a single task by id.
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, msgInvalidID)
		return
	}

	tasks, err := h.store.Load(r.Context())
	if err != nil {
		h.respondServerError(w, r, err, msgReadFailed)
		return
	}

	task, ok := tasks.Find(id)
	if !ok {
		respondError(w, http.StatusNotFound, msgNotFound)
		return
	}

	h.respondJSON(w, http.StatusOK, task)
}

// CreateTask validates the body, appends a task with the next id and saves.
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	input, err := readTaskInput(w, r)
	if err != nil {
		respondInvalidData(w, err)
		return
	}

	unlock, err := h.store.Lock(ctx)
	if err != nil {
		h.respondServerError(w, r, err, msgCreateFail)
		return
	}
	defer unlock()

	tasks, err := h.store.Load(ctx)
	if err != nil {
		h.respondServerError(w, r, err, msgCreateFail)
		return
	}

	task, err := tasks.Add(input)
	if err != nil {
		h.respondServerError(w, r, err, msgCreateFail)
		return
	}

	if err := h.store.Save(ctx, tasks); err != nil {
		h.respondServerError(w, r, err, msgCreateFail)
		return
	}

	h.logger.Debug("task created", "id", task.ID)
	h.respondJSON(w, http.StatusCreated, task)
}

// UpdateTask overwrites the title, description and completed flag of a task.
// The body is read before locking but validated only after the task is found,
// so a missing task is reported before a bad body.
func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, msgInvalidID)
		return
	}

	body, bodyErr := readBody(w, r)

	unlock, err := h.store.Lock(ctx)
	if err != nil {
		h.respondServerError(w, r, err, msgUpdateFail)
		return
	}
	defer unlock()

	tasks, err := h.store.Load(ctx)
	if err != nil {
		h.respondServerError(w, r, err, msgUpdateFail)
		return
	}

	if _, ok := tasks.Find(id); !ok {
		respondError(w, http.StatusNotFound, msgNotFound)
		return
	}

	if bodyErr != nil {
		respondInvalidData(w, bodyErr)
		return
	}
	input, err := models.DecodeTaskInput(body)
	if err != nil {
		respondInvalidData(w, err)
		return
	}

	task, err := tasks.Replace(id, input)
	if err != nil {
		respondError(w, http.StatusNotFound, msgNotFound)
		return
	}

	if err := h.store.Save(ctx, tasks); err != nil {
		h.respondServerError(w, r, err, msgUpdateFail)
		return
	}

	h.respondJSON(w, http.StatusOK, task)
}

// DeleteTask removes a task by id.
func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, msgInvalidID)
		return
	}

	unlock, err := h.store.Lock(ctx)
	if err != nil {
		h.respondServerError(w, r, err, msgDeleteFail)
		return
	}
	defer unlock()

	tasks, err := h.store.Load(ctx)
	if err != nil {
		h.respondServerError(w, r, err, msgDeleteFail)
		return
	}

	if err := tasks.Remove(id); err != nil {
		if errors.Is(err, models.ErrTaskNotFound) {
			respondError(w, http.StatusNotFound, msgNotFound)
			return
		}
		h.respondServerError(w, r, err, msgDeleteFail)
		return
	}

	if err := h.store.Save(ctx, tasks); err != nil {
		h.respondServerError(w, r, err, msgDeleteFail)
		return
	}

	respondText(w, http.StatusOK, msgDeleteDone)
}
