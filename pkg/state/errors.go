package state

import "errors"

var (
	ErrVMNotFound   = errors.New("VM not found")
	ErrVMRunning    = errors.New("VM is still running")
	ErrSaveRecord   = errors.New("save VM record")
	ErrListRecords  = errors.New("list VM records")
	ErrRemoveRecord = errors.New("remove VM record")
)
