package backtest

import "errors"

var (
	// ErrInvalidInput некорректная хромосома (длина, гены вне [0,1])
	ErrInvalidInput = errors.New("некорректные входные данные")
	// ErrInvalidConfig некорректная конфигурация бэктеста
	ErrInvalidConfig = errors.New("некорректная конфигурация бэктеста")
)
