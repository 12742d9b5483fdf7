package api

import "errors"

var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrSaveConfig     = errors.New("save config")
	ErrLoadConfig     = errors.New("load config")
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrVMNotRunning   = errors.New("VM is not running")
)
