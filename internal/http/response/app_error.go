package response

import "errors"

// AppError 带业务码的错误，Key 为 i18n 文案键
type AppError struct {
	Code int
	Key  string
	Err  error
}

func NewError(code int, key string, err error) *AppError {
	return &AppError{Code: code, Key: key, Err: err}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Key
	}
	return e.Key + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// AsAppError 从错误链中取出 AppError
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
