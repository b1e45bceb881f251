package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopeMatches(t *testing.T) {
	r := &Report{
		ReporterID:       "citizen-1",
		AssignedTo:       StringPtr("sup-1"),
		AssignedToWorker: StringPtr("worker-1"),
	}

	cases := []struct {
		scope Scope
		want  bool
	}{
		{Scope{Role: RoleAdmin}, true},
		{Scope{Role: RoleCitizen, UserID: "citizen-1"}, true},
		{Scope{Role: RoleCitizen, UserID: "citizen-2"}, false},
		{Scope{Role: RoleSupervisor, UserID: "sup-1"}, true},
		{Scope{Role: RoleSupervisor, UserID: "sup-2"}, false},
		{Scope{Role: RoleWorker, UserID: "worker-1"}, true},
		{Scope{Role: RoleWorker, UserID: "worker-2"}, false},
		{Scope{Role: RoleCitizen}, false},
		{Scope{}, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.scope.Matches(r), "%+v", tc.scope)
	}
	assert.False(t, Scope{Role: RoleAdmin}.Matches(nil))
}

func TestSessionRequire(t *testing.T) {
	var none *Session
	assert.ErrorIs(t, none.Require(), ErrUnauthorized)

	s := &Session{UserID: "sup-1", Role: RoleSupervisor}
	assert.NoError(t, s.Require())
	assert.NoError(t, s.Require(RoleSupervisor, RoleAdmin))
	assert.ErrorIs(t, s.Require(RoleAdmin), ErrForbidden)

	assert.ErrorIs(t, (&Session{UserID: "x", Role: "mayor"}).Require(), ErrUnauthorized)
	assert.Equal(t, Scope{Role: RoleSupervisor, UserID: "sup-1"}, ScopeFor(s))
}

func TestSessionRequireStaff(t *testing.T) {
	var none *Session
	assert.ErrorIs(t, none.RequireStaff(), ErrUnauthorized)

	for role, want := range map[Role]error{
		RoleAdmin:      nil,
		RoleSupervisor: nil,
		RoleWorker:     ErrForbidden,
		RoleCitizen:    ErrForbidden,
	} {
		err := (&Session{UserID: "u-1", Role: role}).RequireStaff()
		if want == nil {
			assert.NoError(t, err, role)
		} else {
			assert.ErrorIs(t, err, want, role)
		}
	}
}
