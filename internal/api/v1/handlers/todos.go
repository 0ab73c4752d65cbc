package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/fasttodo/fasttodo/internal/api/v1/middleware"
	"github.com/fasttodo/fasttodo/internal/metrics"
	"github.com/fasttodo/fasttodo/internal/store"
	"github.com/fasttodo/fasttodo/pkg/httpext"
)

const todoListLimit = 100

// TodoHandler serves the todo CRUD routes. Every operation is scoped to
// the authenticated user.
type TodoHandler struct {
	todos store.TodoStore
}

func NewTodoHandler(todos store.TodoStore) *TodoHandler {
	return &TodoHandler{todos: todos}
}

type todoRequest struct {
	Title       string     `json:"title" validate:"required,min=1,max=100"`
	Description string     `json:"description" validate:"max=500"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate     *time.Time `json:"due_date"`
	Completed   *bool      `json:"completed"`
}

func (h *TodoHandler) List(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)
	if identity == nil {
		httpext.JsonChallenge(w, "Missing token")
		return
	}

	todos, err := h.todos.ListByUser(r.Context(), identity.UserID, todoListLimit)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Todo list failed")
		httpext.JsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if todos == nil {
		todos = []*store.Todo{}
	}
	httpext.JsonResponse(w, http.StatusOK, todos)
}

func (h *TodoHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)
	if identity == nil {
		httpext.JsonChallenge(w, "Missing token")
		return
	}

	todo, err := h.todos.Find(r.Context(), identity.UserID, mux.Vars(r)["id"])
	if err != nil {
		httpext.JsonError(w, "Todo not found", http.StatusNotFound)
		return
	}
	httpext.JsonResponse(w, http.StatusOK, todo)
}

func (h *TodoHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)
	if identity == nil {
		httpext.JsonChallenge(w, "Missing token")
		return
	}

	req, ok := decodeTodo(w, r)
	if !ok {
		return
	}

	priority := store.PriorityMedium
	if req.Priority != "" {
		priority = store.Priority(req.Priority)
	}

	todo := &store.Todo{
		UserID:      identity.UserID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    priority,
		DueDate:     req.DueDate,
	}
	if err := h.todos.InsertTodo(r.Context(), todo); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Todo insert failed")
		httpext.JsonError(w, "Failed to create todo", http.StatusInternalServerError)
		return
	}

	metrics.TodosCreatedTotal.Inc()
	httpext.JsonResponse(w, http.StatusCreated, todo)
}

func (h *TodoHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)
	if identity == nil {
		httpext.JsonChallenge(w, "Missing token")
		return
	}

	existing, err := h.todos.Find(r.Context(), identity.UserID, mux.Vars(r)["id"])
	if err != nil {
		httpext.JsonError(w, "Todo not found", http.StatusNotFound)
		return
	}

	req, ok := decodeTodo(w, r)
	if !ok {
		return
	}

	wasCompleted := existing.Completed
	existing.Title = req.Title
	existing.Description = req.Description
	if req.Priority != "" {
		existing.Priority = store.Priority(req.Priority)
	}
	existing.DueDate = req.DueDate
	if req.Completed != nil {
		existing.Completed = *req.Completed
	}

	if err := h.todos.Update(r.Context(), existing); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpext.JsonError(w, "Todo not found", http.StatusNotFound)
			return
		}
		httpext.JsonError(w, "Failed to update todo", http.StatusInternalServerError)
		return
	}

	if !wasCompleted && existing.Completed {
		metrics.TodosCompletedTotal.Inc()
	}
	httpext.JsonResponse(w, http.StatusOK, existing)
}

func (h *TodoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)
	if identity == nil {
		httpext.JsonChallenge(w, "Missing token")
		return
	}

	if err := h.todos.Delete(r.Context(), identity.UserID, mux.Vars(r)["id"]); err != nil {
		httpext.JsonError(w, "Todo not found", http.StatusNotFound)
		return
	}

	metrics.TodosDeletedTotal.Inc()
	httpext.JsonResponse(w, http.StatusOK, map[string]string{"message": "Todo deleted successfully"})
}

func decodeTodo(w http.ResponseWriter, r *http.Request) (todoRequest, bool) {
	var req todoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpext.JsonError(w, "Invalid request body", http.StatusBadRequest)
		return req, false
	}
	if err := validate.Struct(req); err != nil {
		httpext.JsonError(w, "Validation failed: "+err.Error(), http.StatusUnprocessableEntity)
		return req, false
	}
	if req.DueDate != nil && req.DueDate.Before(time.Now()) {
		httpext.JsonError(w, "Due date cannot be in the past", http.StatusUnprocessableEntity)
		return req, false
	}
	return req, true
}
