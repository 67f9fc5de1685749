package domain

import "time"

// EventType names a security event.
type EventType string

const (
	EventLoginSuccess    EventType = "login_success"
	EventLoginFailure    EventType = "login_failure"
	EventRefreshSuccess  EventType = "refresh_success"
	EventRefreshReuse    EventType = "refresh_reuse"
	EventLogout          EventType = "logout"
	EventLogoutAll       EventType = "logout_all"
	EventValidateFailure EventType = "validate_failure"
	EventGuardReject     EventType = "guard_reject"
	EventSignUp          EventType = "sign_up"
	EventPasswordChanged EventType = "password_changed"
	EventDeactivated     EventType = "deactivated"
	EventVerified        EventType = "verified"
)

// Event is a security event emitted by the auth service and guards. Kind carries the
// fine-grained rejection kind (e.g. "session_mismatch"); it never reaches API callers.
type Event struct {
	Type      EventType `json:"type"`
	Kind      string    `json:"kind,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	DeviceID  string    `json:"device_id,omitempty"`
	Method    string    `json:"method,omitempty"`
	ClientIP  string    `json:"client_ip,omitempty"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
