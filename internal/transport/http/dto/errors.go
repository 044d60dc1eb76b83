package dto

// BaseError — единый формат ошибки API.
// Code — машинный код (snake_case), Message — краткое описание, Fields — ошибки валидации по полям.
type BaseError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details string       `json:"details,omitempty"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// FieldError: Field — путь к полю ("items[1].quantity", "shipping_address.phone").
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func NewValidationError(msg string, fields []FieldError) BaseError {
	return BaseError{Code: "validation_error", Message: msg, Fields: fields}
}
func NewConflictError(code, msg string) BaseError {
	return BaseError{Code: code, Message: msg}
}
func NewUnauthorizedError(msg string) BaseError {
	return BaseError{Code: "unauthorized", Message: msg}
}
func NewForbiddenError(msg string) BaseError {
	return BaseError{Code: "forbidden", Message: msg}
}
func NewNotFoundError(msg string) BaseError {
	return BaseError{Code: "not_found", Message: msg}
}
func NewUnavailableError(msg string) BaseError {
	return BaseError{Code: "service_unavailable", Message: msg}
}
func NewInternalError(details string) BaseError {
	return BaseError{Code: "internal_error", Message: "internal server error", Details: details}
}
