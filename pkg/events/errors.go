package events

import "errors"

var (
	ErrCreateJournalFile = errors.New("events: create journal file")
	ErrWriteEvent        = errors.New("events: write event")
	ErrMarshalData       = errors.New("events: marshal event data")
	ErrCloseWriter       = errors.New("events: close writer")
)
