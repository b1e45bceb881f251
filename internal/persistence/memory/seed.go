package memory

import (
	"strings"

	"github.com/hilthontt/civicreport/internal/domain"
)

// DemoDirectory returns an admin, a citizen, and one supervisor plus one
// worker per routable department, with each department pointing at its
// supervisor.
func DemoDirectory() ([]domain.User, []domain.Department) {
	users := []domain.User{
		{ID: "admin", Name: "City Admin", Role: domain.RoleAdmin},
		{ID: "citizen-1", Name: "Demo Citizen", Role: domain.RoleCitizen},
	}

	var depts []domain.Department
	seen := make(map[string]bool)
	for _, c := range domain.Categories() {
		key := c.Department
		if key == domain.DeptNone || seen[key] {
			continue
		}
		seen[key] = true

		name := strings.ToUpper(key[:1]) + key[1:]
		supervisor := domain.User{ID: "sup-" + key, Name: name + " Supervisor", Role: domain.RoleSupervisor, Department: key}
		worker := domain.User{ID: "worker-" + key, Name: name + " Crew", Role: domain.RoleWorker, Department: key}
		users = append(users, supervisor, worker)
		depts = append(depts, domain.Department{Key: key, Name: name, SupervisorID: supervisor.ID})
	}
	return users, depts
}
