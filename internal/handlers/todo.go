package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	dom "github.com/birlikkoshan/todos-api/internal/domain"
	"github.com/birlikkoshan/todos-api/internal/dto"
	"github.com/birlikkoshan/todos-api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/sirupsen/logrus"
)

var errNullBody = errors.New("request body is null")

// ActivityRecorder receives one action per successful operation. Record must not block.
type ActivityRecorder interface {
	Record(action string)
}

type TodoHandler struct {
	svc      *service.TodoService
	activity ActivityRecorder
	log      logrus.FieldLogger
}

func NewTodoHandler(svc *service.TodoService, activity ActivityRecorder, log logrus.FieldLogger) *TodoHandler {
	return &TodoHandler{svc: svc, activity: activity, log: log}
}

// List godoc
// @Summary      List todos
// @Tags         todos
// @Produce      json
// @Param        completed  query     bool  false  "Only completed (true) or open (false) todos"
// @Success      200        {array}   dto.TodoResponse
// @Failure      500        {object}  dto.ErrorResponse
// @Router       /todos [get]
func (h *TodoHandler) List(c *gin.Context) {
	var completed *bool
	switch c.Query("completed") {
	case "true":
		v := true
		completed = &v
	case "false":
		v := false
		completed = &v
	}

	list, err := h.svc.List(c.Request.Context(), completed)
	if err != nil {
		h.fail(c, "list", err, "Could not retrieve todos")
		return
	}
	c.JSON(http.StatusOK, todosToResponses(list))
	h.record(c, "")
}

// GetByID godoc
// @Summary      Get a todo by ID
// @Tags         todos
// @Produce      json
// @Param        id   path      int  true  "Todo ID"
// @Success      200  {object}  dto.TodoResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /todos/{id} [get]
func (h *TodoHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "Invalid todo ID")
	if !ok {
		return
	}
	t, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			writeError(c, http.StatusNotFound, fmt.Sprintf("Todo with ID %s not found", c.Param("id")))
			return
		}
		h.fail(c, "get", err, "Could not retrieve todos")
		return
	}
	c.JSON(http.StatusOK, todoToResponse(t))
	h.record(c, fmt.Sprintf("Fetched todo ID %d", t.ID))
}

// Create godoc
// @Summary      Create a todo
// @Tags         todos
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreateTodoRequest  true  "Todo body"
// @Success      201   {object}  dto.TodoResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /todos [post]
func (h *TodoHandler) Create(c *gin.Context) {
	var req dto.CreateTodoRequest
	if err := bindCreateBody(c, &req); err != nil {
		_ = c.Error(err)
		writeError(c, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if req.Title == nil {
		writeError(c, http.StatusBadRequest, `Missing "title" in request body`)
		return
	}
	completed := req.Completed != nil && *req.Completed

	t, err := h.svc.Create(c.Request.Context(), *req.Title, completed)
	if err != nil {
		if errors.Is(err, dom.ErrMissingTitle) {
			writeError(c, http.StatusBadRequest, `Missing "title" in request body`)
			return
		}
		h.fail(c, "create", err, "Could not save new todo")
		return
	}
	c.JSON(http.StatusCreated, todoToResponse(t))
	h.record(c, fmt.Sprintf("Created todo ID %d", t.ID))
}

// Update godoc
// @Summary      Update a todo
// @Description  Shallow merge of the given fields. The id in the body is ignored.
// @Tags         todos
// @Accept       json
// @Produce      json
// @Param        id    path      int                    true  "Todo ID"
// @Param        body  body      dto.UpdateTodoRequest  true  "Partial update"
// @Success      200   {object}  dto.TodoResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /todos/{id} [put]
func (h *TodoHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "Invalid todo ID for update")
	if !ok {
		return
	}
	var req dto.UpdateTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		writeError(c, http.StatusBadRequest, "Invalid JSON in update request body")
		return
	}

	t, err := h.svc.Update(c.Request.Context(), id, service.TodoPatch{
		Title:     req.Title,
		Completed: req.Completed,
	})
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			writeError(c, http.StatusNotFound, fmt.Sprintf("Todo with ID %s not found for update", c.Param("id")))
			return
		}
		h.fail(c, "update", err, "Could not update todo")
		return
	}
	c.JSON(http.StatusOK, todoToResponse(t))
	h.record(c, fmt.Sprintf("Updated todo ID %d", t.ID))
}

// Delete godoc
// @Summary      Delete a todo
// @Tags         todos
// @Param        id   path  int  true  "Todo ID"
// @Success      204
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /todos/{id} [delete]
func (h *TodoHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "Invalid todo ID for deletion")
	if !ok {
		return
	}
	err := h.svc.Delete(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			writeError(c, http.StatusNotFound, fmt.Sprintf("Todo with ID %s not found for deletion", c.Param("id")))
			return
		}
		h.fail(c, "delete", err, "Could not delete todo")
		return
	}
	c.Status(http.StatusNoContent)
	h.record(c, fmt.Sprintf("Deleted todo ID %d", id))
}

// bindCreateBody decodes a create request. A literal null body carries no
// object to take a title from, so it is rejected like malformed JSON.
func bindCreateBody(c *gin.Context, req *dto.CreateTodoRequest) error {
	body, err := c.GetRawData()
	if err != nil {
		return err
	}
	if bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return errNullBody
	}
	return binding.JSON.BindBody(body, req)
}

// parseID reads the id path param. A well-formed id too large for int64
// becomes 0, which matches no todo, so the caller answers 404.
func parseID(c *gin.Context, invalidMsg string) (int64, bool) {
	id, ok, overflow := dom.ParseID(c.Param("id"))
	if !ok {
		writeError(c, http.StatusBadRequest, invalidMsg)
		return 0, false
	}
	if overflow {
		return 0, true
	}
	return id, true
}

// fail answers 500 with a generic message and keeps the detail for operators.
func (h *TodoHandler) fail(c *gin.Context, op string, err error, msg string) {
	_ = c.Error(err)
	h.log.WithError(err).WithFields(logrus.Fields{
		"op":   op,
		"path": c.Request.URL.Path,
	}).Error("todo store failure")
	writeError(c, http.StatusInternalServerError, msg)
}

// record dispatches the activity event after the response has been written.
func (h *TodoHandler) record(c *gin.Context, detail string) {
	if h.activity == nil {
		return
	}
	action := c.Request.Method + " " + c.Request.URL.Path
	if detail != "" {
		action += " - " + detail
	}
	h.activity.Record(action)
}

func writeError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, dto.ErrorResponse{Error: msg})
}

func todoToResponse(t dom.Todo) dto.TodoResponse {
	return dto.TodoResponse{
		ID:        t.ID,
		Title:     t.Title,
		Completed: t.Completed,
	}
}

func todosToResponses(list dom.Collection) []dto.TodoResponse {
	out := make([]dto.TodoResponse, len(list))
	for i := range list {
		out[i] = todoToResponse(list[i])
	}
	return out
}
