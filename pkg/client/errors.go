package client

import "errors"

var (
	ErrUnsupportedMethod  = errors.New("unsupported method")
	ErrSocketNotAvailable = errors.New("control socket not available")
	ErrEncodeBody         = errors.New("encode request body")
	ErrRequestFailed      = errors.New("API request failed")
	ErrDecodeResponse     = errors.New("decode response body")
)
