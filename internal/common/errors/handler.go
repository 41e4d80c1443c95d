// internal/common/errors/handler.go
package errors

type Logger interface {
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// ErrorHandler normalizes and logs errors at the request boundary.
type ErrorHandler struct {
	logger Logger
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle converts err into the EdgeFunctionError returned to the caller and logs it.
// Client errors are logged at warn, server and upstream errors at error.
func (h *ErrorHandler) Handle(err error, fields map[string]interface{}) *EdgeFunctionError {
	efe := Normalize(err)
	if efe == nil {
		return nil
	}

	logFields := map[string]interface{}{
		"errorCode":     string(efe.Code),
		"errorCategory": GetErrorCategory(efe.Code),
		"statusCode":    efe.Status(),
		"message":       efe.Message,
	}
	if efe.cause != nil {
		logFields["cause"] = efe.cause.Error()
	}
	for k, v := range fields {
		logFields[k] = v
	}

	if efe.Status() >= 500 {
		h.logger.Error("function failed", logFields)
	} else {
		h.logger.Warn("function rejected request", logFields)
	}
	return efe
}
