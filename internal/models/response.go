package models

// APIResponse is the wire envelope every coordinator and signer endpoint uses.
// Status is "success" or "fail"; Data carries the payload (or a failure detail
// string), Message carries auth-style failure text.
type APIResponse struct {
	Status  string      `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Success wraps a payload in the success envelope.
func Success(data interface{}) APIResponse {
	return APIResponse{Status: "success", Data: data}
}

// Fail wraps a failure detail in the fail envelope.
func Fail(detail string) APIResponse {
	return APIResponse{Status: "fail", Data: detail}
}

// FailMessage wraps an auth-style failure in the fail envelope.
func FailMessage(message string) APIResponse {
	return APIResponse{Status: "fail", Message: message}
}
