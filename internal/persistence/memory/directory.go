package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/hilthontt/civicreport/internal/domain"
)

type UserStore struct {
	users map[string]domain.User
	mu    sync.RWMutex
}

func NewUserStore(users ...domain.User) *UserStore {
	s := &UserStore{users: make(map[string]domain.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

var _ domain.UserRepository = (*UserStore)(nil)

func (s *UserStore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (s *UserStore) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	s.mu.RLock()
	out := make([]domain.User, 0)
	for _, u := range s.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *UserStore) Upsert(ctx context.Context, user *domain.User) error {
	if user == nil || user.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	s.users[user.ID] = *user
	s.mu.Unlock()
	return nil
}

type DepartmentStore struct {
	depts map[string]domain.Department
	mu    sync.RWMutex
}

func NewDepartmentStore(depts ...domain.Department) *DepartmentStore {
	s := &DepartmentStore{depts: make(map[string]domain.Department)}
	for _, d := range depts {
		s.depts[d.Key] = d
	}
	return s
}

var _ domain.DepartmentRepository = (*DepartmentStore)(nil)

func (s *DepartmentStore) GetByKey(ctx context.Context, key string) (*domain.Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.depts[key]
	if !ok {
		return nil, domain.ErrDepartmentNotFound
	}
	return &d, nil
}

func (s *DepartmentStore) List(ctx context.Context) ([]domain.Department, error) {
	s.mu.RLock()
	out := make([]domain.Department, 0, len(s.depts))
	for _, d := range s.depts {
		out = append(out, d)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *DepartmentStore) Upsert(ctx context.Context, dept *domain.Department) error {
	if dept == nil || dept.Key == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	s.depts[dept.Key] = *dept
	s.mu.Unlock()
	return nil
}
