package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type ResponseCode string

const (
	CodeSuccess          ResponseCode = "success"
	CodeInvalidParameter ResponseCode = "invalid_parameter"
	CodeUnauthorized     ResponseCode = "unauthorized"
	CodeForbidden        ResponseCode = "forbidden"
	CodeNotFound         ResponseCode = "not_found"
	CodeBusy             ResponseCode = "busy"
	CodeNoURL            ResponseCode = "no_url"
	CodeInternal         ResponseCode = "internal_error"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Code    ResponseCode `json:"code"`
	Message string       `json:"message"`
	Data    any          `json:"data"`
}

// APIError carries the status and code a handler failure maps to.
type APIError struct {
	Status int
	Code   ResponseCode
	Msg    string
	Err    error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *APIError) Unwrap() error {
	return e.Err
}

type ErrorOption func(*APIError)

func WithStatus(status int) ErrorOption {
	return func(e *APIError) {
		e.Status = status
	}
}

func WithError(err error) ErrorOption {
	return func(e *APIError) {
		e.Err = err
	}
}

func NewAPIError(code ResponseCode, msg string, opts ...ErrorOption) *APIError {
	err := &APIError{
		Status: http.StatusInternalServerError,
		Code:   code,
		Msg:    msg,
	}
	for _, opt := range opts {
		opt(err)
	}
	return err
}

func success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Code: CodeSuccess, Message: "success", Data: data})
}

func failure(c *gin.Context, err *APIError) {
	c.AbortWithStatusJSON(err.Status, Response{Code: err.Code, Message: err.Msg})
}
