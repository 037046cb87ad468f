package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// 错误分类，调用方用 errors.Is 判断
var (
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = fmt.Errorf("not found: %w", ErrValidation)
	ErrRuleViolation = errors.New("rule violation")
	ErrForbidden     = fmt.Errorf("forbidden: %w", ErrRuleViolation)
	ErrPersistence   = errors.New("persistence failure")
)

// Error 带可读信息的分类错误
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func Validation(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

// NotFound 同时属于 ErrValidation
func NotFound(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Rule(format string, args ...any) error {
	return &Error{Kind: ErrRuleViolation, Msg: fmt.Sprintf(format, args...)}
}

// Forbidden 操作者无权操作该座位或房间，同时属于 ErrRuleViolation
func Forbidden(format string, args ...any) error {
	return &Error{Kind: ErrForbidden, Msg: fmt.Sprintf(format, args...)}
}

func Persistence(err error, format string, args ...any) error {
	return &Error{Kind: ErrPersistence, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Message 取面向用户的信息，不暴露底层存储错误
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return err.Error()
}

// HTTPStatus 把错误分类映射到状态码
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrRuleViolation):
		return http.StatusConflict
	case errors.Is(err, ErrPersistence):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Response 统一的失败响应体 {"success": false, "error": msg}
func Response(err error) (int, map[string]any) {
	return HTTPStatus(err), map[string]any{"success": false, "error": Message(err)}
}
