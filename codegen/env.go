package codegen

import (
	"sync"

	"go.uber.org/zap"

	"github.com/teranos/annogen/entity"
	"github.com/teranos/annogen/errors"
	"github.com/teranos/annogen/logger"
)

// Env is the per-file generation environment handed to rules.
type Env struct {
	Settings Settings
	Model    *entity.Model

	logger *zap.SugaredLogger

	mu    sync.Mutex
	diags []error
}

// NewEnv returns an environment for model. A nil logger disables logging.
func NewEnv(settings Settings, model *entity.Model, log *zap.SugaredLogger) *Env {
	l := logger.OrNop(log)
	if model != nil {
		l = l.With(logger.FieldFile, model.File)
	}
	return &Env{Settings: settings, Model: model, logger: l}
}

// Logger returns the environment logger. It is never nil.
func (e *Env) Logger() *zap.SugaredLogger {
	if e.logger == nil {
		return logger.OrNop(nil)
	}
	return e.logger
}

// Report logs err and records it as a diagnostic of this file.
func (e *Env) Report(err error) {
	if err == nil {
		return
	}
	e.Logger().Errorw("Generation diagnostic",
		logger.FieldErrorType, categoryName(err),
		logger.FieldError, err.Error())

	e.mu.Lock()
	e.diags = append(e.diags, err)
	e.mu.Unlock()
}

// Diagnostics returns the reported diagnostics in report order.
func (e *Env) Diagnostics() []error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]error(nil), e.diags...)
}

// HasFatal reports whether any recorded diagnostic fails the file.
func (e *Env) HasFatal() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, d := range e.diags {
		if errors.IsFatal(d) {
			return true
		}
	}
	return false
}

func (e *Env) fatalCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, d := range e.diags {
		if errors.IsFatal(d) {
			n++
		}
	}
	return n
}

func categoryName(err error) string {
	switch errors.Category(err) {
	case errors.ErrGrammar:
		return "grammar"
	case errors.ErrRuleValidation:
		return "rule_validation"
	case errors.ErrStructuralPrecondition:
		return "structural_precondition"
	case errors.ErrParseFailure:
		return "parse_failure"
	case errors.ErrIO:
		return "io"
	default:
		return "internal"
	}
}
