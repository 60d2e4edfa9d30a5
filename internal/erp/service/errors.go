package service

import (
	"errors"
	"fmt"

	"github.com/bitfantasy/nimo-erp/internal/erp/repository"
	"github.com/bitfantasy/nimo-erp/internal/erp/workflow"
	"gorm.io/gorm"
)

// 错误类别，处理器据此映射HTTP状态码
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrForbidden    = errors.New("forbidden")
	ErrValidation   = errors.New("validation")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("unavailable")
)

// Error 带类别的业务错误，Message 直接返回给调用方
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(what string) error {
	return newError(ErrNotFound, "%s不存在", what)
}

func conflictError(format string, args ...interface{}) error {
	return newError(ErrConflict, format, args...)
}

func validationError(format string, args ...interface{}) error {
	return newError(ErrValidation, format, args...)
}

func stateError(format string, args ...interface{}) error {
	return newError(ErrInvalidState, format, args...)
}

// translate 把仓库层和工作流错误归入业务错误类别，其余错误原样返回
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	var svcErr *Error
	switch {
	case errors.As(err, &svcErr):
		return err
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return notFoundError(what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return conflictError("%s已存在", what)
	case errors.Is(err, workflow.ErrUnknownStatus), errors.Is(err, workflow.ErrBOMCycle):
		return &Error{Kind: ErrValidation, Message: err.Error()}
	case errors.Is(err, workflow.ErrIllegalTransition), errors.Is(err, workflow.ErrTerminal):
		return &Error{Kind: ErrInvalidState, Message: err.Error()}
	}
	return err
}
