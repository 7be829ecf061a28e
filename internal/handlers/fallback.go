package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/birlikkoshan/todos-api/internal/dto"

	"github.com/gin-gonic/gin"
)

// Root answers GET / with the welcome message.
func Root(c *gin.Context) {
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Welcome to todos API"})
}

// NoRoute handles paths no route matched. Anything under /todos that did
// not match /todos or /todos/:id carries a malformed id (for example
// "/todos/" or "/todos/1/x"), so id-taking methods get 400 and the rest 405.
func NoRoute(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/todos") {
		switch c.Request.Method {
		case http.MethodGet:
			writeError(c, http.StatusBadRequest, "Invalid todo ID")
		case http.MethodPut:
			writeError(c, http.StatusBadRequest, "Invalid todo ID for update")
		case http.MethodDelete:
			writeError(c, http.StatusBadRequest, "Invalid todo ID for deletion")
		default:
			MethodNotAllowed(c)
		}
		return
	}
	writeError(c, http.StatusNotFound, "Unrecognized API endpoint")
}

// MethodNotAllowed handles a known path with an unsupported method.
func MethodNotAllowed(c *gin.Context) {
	writeError(c, http.StatusMethodNotAllowed, fmt.Sprintf("Method %s not allowed on this endpoint", c.Request.Method))
}

// JSONContentType marks every response of the API as JSON, including 204s.
func JSONContentType() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "application/json")
		c.Next()
	}
}
