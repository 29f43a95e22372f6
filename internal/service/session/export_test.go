package session

// SessionsNumber returns number of active sessions.
func (r *Registry) SessionsNumber() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return len(r.sessions)
}
