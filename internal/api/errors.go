package api

import (
	"github.com/danielgtaylor/huma/v2"
)

// apiError matches the error format the dashboard client expects: {"error": string}.
type apiError struct {
	status  int
	Message string `json:"error"`
}

func (e *apiError) Error() string {
	return e.Message
}

func (e *apiError) GetStatus() int {
	return e.status
}

func init() {
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		if len(errs) > 0 && msg == "" {
			msg = errs[0].Error()
		}
		return &apiError{
			status:  status,
			Message: msg,
		}
	}
}
