package domain

// SessionStatus represents the lifecycle state of the client session.
type SessionStatus string

const (
	SessionUninitialized   SessionStatus = "uninitialized"
	SessionInitializing    SessionStatus = "initializing"
	SessionAuthenticated   SessionStatus = "authenticated"
	SessionUnauthenticated SessionStatus = "unauthenticated"
)

// validSessionTransitions defines the allowed state machine transitions.
var validSessionTransitions = map[SessionStatus][]SessionStatus{
	SessionUninitialized:   {SessionInitializing},
	SessionInitializing:    {SessionAuthenticated, SessionUnauthenticated},
	SessionUnauthenticated: {SessionAuthenticated},
	SessionAuthenticated:   {SessionUnauthenticated},
}

// CanTransitionTo reports whether a transition from current status to next is valid.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	for _, allowed := range validSessionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Session is the authenticated-identity state of the running app instance.
// Token is non-empty exactly when Status is SessionAuthenticated.
type Session struct {
	Status  SessionStatus `json:"status"`
	Token   string        `json:"token,omitempty"`
	User    *UserProfile  `json:"user,omitempty"`
	Loading bool          `json:"loading"`
	Err     string        `json:"error,omitempty"`
}

// IsAuthenticated reports whether a user is logged in.
func (s Session) IsAuthenticated() bool {
	return s.Status == SessionAuthenticated
}

// Clone returns a deep copy so callers can't mutate store-owned state.
func (s Session) Clone() Session {
	out := s
	if s.User != nil {
		u := s.User.Clone()
		out.User = &u
	}
	return out
}

// AuthRecord is the persisted form of an authenticated session.
type AuthRecord struct {
	Token string       `json:"token"`
	User  *UserProfile `json:"user"`
}

// Valid reports whether the record carries enough to restore a session.
func (r AuthRecord) Valid() bool {
	return r.Token != "" && r.User != nil && r.User.ID != ""
}
