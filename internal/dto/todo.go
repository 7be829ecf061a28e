package dto

// CreateTodoRequest is the JSON body for POST /todos. Title is a pointer so
// a missing field can be told apart from an empty one.
type CreateTodoRequest struct {
	Title     *string `json:"title" example:"buy milk"`
	Completed *bool   `json:"completed" example:"false"`
}

// UpdateTodoRequest is the JSON body for PUT /todos/{id}. Nil = не менять.
// An "id" in the body is ignored: the path id always wins.
type UpdateTodoRequest struct {
	Title     *string `json:"title" example:"buy oat milk"`
	Completed *bool   `json:"completed" example:"true"`
}

type TodoResponse struct {
	ID        int64  `json:"id" example:"1"`
	Title     string `json:"title" example:"buy milk"`
	Completed bool   `json:"completed" example:"false"`
}

// ErrorResponse is the envelope of every error.
type ErrorResponse struct {
	Error string `json:"error" example:"Todo with ID 999 not found"`
}

type MessageResponse struct {
	Message string `json:"message" example:"Welcome to todos API"`
}
