package core

import "errors"

var (
	ErrUnknownApplication = errors.New("unknown application")
	ErrInvalidSubmission  = errors.New("invalid job submission")
	ErrJobNotFound        = errors.New("job not found")
)
