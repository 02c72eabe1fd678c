package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// HealthStatus describes the /healthz response.
type HealthStatus struct {
	Status string                 `json:"status"`
	Users  int                    `json:"users"`
	Checks map[string]interface{} `json:"checks"`
}

// Telemetry carries the activity signal the avatar, tip and level calls
// require. RegistrationTime is mandatory.
type Telemetry struct {
	TotalScore       float64
	ExpavgScore      float64
	CPUs             int
	RegistrationTime time.Time
	HasAndroid       bool
}

// APIError is the structured error body returned by the server.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (status %d): %s", e.Code, e.Status, e.Message)
}

func decodeJSON(resp *http.Response, target any) error {
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Code == "" {
			return fmt.Errorf("request failed: status %d", resp.StatusCode)
		}
		return apiErr
	}
	if target == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

// ErrEmptyUsername is returned when the username is empty.
var ErrEmptyUsername = errors.New("username is required")
