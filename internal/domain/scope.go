package domain

// Scope is the slice of the report collection a role may see.
type Scope struct {
	Role   Role
	UserID string
}

func ScopeFor(s *Session) Scope {
	if s == nil {
		return Scope{}
	}
	return Scope{Role: s.Role, UserID: s.UserID}
}

func (sc Scope) Matches(r *Report) bool {
	if r == nil {
		return false
	}
	switch sc.Role {
	case RoleAdmin:
		return true
	case RoleCitizen:
		return sc.UserID != "" && r.ReporterID == sc.UserID
	case RoleSupervisor:
		return sc.UserID != "" && r.IsAssignedTo(sc.UserID)
	case RoleWorker:
		return sc.UserID != "" && r.AssignedToWorker != nil && *r.AssignedToWorker == sc.UserID
	}
	return false
}
