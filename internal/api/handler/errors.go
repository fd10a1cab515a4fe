package handler

// OperationError attaches the route's user-facing failure message to an
// unexpected error. Known domain errors inside Err still take precedence when
// the error handler maps the response.
type OperationError struct {
	Message string
	Err     error
}

func (e *OperationError) Error() string { return e.Message + ": " + e.Err.Error() }

func (e *OperationError) Unwrap() error { return e.Err }

func opError(message string, err error) error {
	return &OperationError{Message: message, Err: err}
}
