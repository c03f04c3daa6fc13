package contracts

// Request/response bodies for the dispatch server's mobile API.

// LoginRequest is the body of POST /api/mobile-login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the success body of POST /api/mobile-login. The session
// cookie itself travels in the Set-Cookie header, not here.
type LoginResponse struct {
	DriverID string `json:"driver_id"`
	Name     string `json:"name,omitempty"`
}

// PushTokenRequest is the body of POST /api/push-token.
type PushTokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
	DeviceID string `json:"device_id"`
}

// RequestStatusResponse is the body of GET /api/request-status: the set of
// ride-request ids the server still considers pending for this driver.
type RequestStatusResponse struct {
	Pending []string `json:"pending"`
}

// ErrorResponse is the generic error body the server returns on non-2xx.
type ErrorResponse struct {
	Error string `json:"error"`
}
