package storedb

import "errors"

var (
	ErrCreateStateDir = errors.New("create state dir")
	ErrOpenDatabase   = errors.New("open database")
	ErrMigrate        = errors.New("apply migration")
)
