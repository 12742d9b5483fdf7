package main

import "errors"

// Run errors
var (
	ErrInvalidDisk  = errors.New("invalid disk specification")
	ErrLoadConfig   = errors.New("loading configuration")
	ErrStartVM      = errors.New("starting VM")
	ErrStopVM       = errors.New("stopping VM")
	ErrOpenRegistry = errors.New("open run registry")
	ErrOpenEventLog = errors.New("open event log")
)

// Remote command errors
var (
	ErrRemoteCommand = errors.New("VM command failed")
)
