package errors

// ErrorHandler normalises errors raised by a user action and logs them once, at the
// point where the action was triggered.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle returns the normalised error, or nil when err is nil.
func (h *ErrorHandler) Handle(action string, err error) *StandardError {
	if err == nil {
		return nil
	}
	stdErr := AsStandardError(err)

	fields := map[string]interface{}{
		"action":        action,
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"retryable":     stdErr.Retryable,
		"errorCategory": GetErrorCategory(stdErr.Code),
	}
	if stdErr.StatusCode != 0 {
		fields["statusCode"] = stdErr.StatusCode
	}

	// Validation and precondition failures are user mistakes, not faults.
	switch GetErrorCategory(stdErr.Code) {
	case "VALIDATION", "PRECONDITION":
		h.logger.Warn("Action rejected", fields)
	default:
		h.logger.Error("Action failed", fields)
	}
	return stdErr
}
