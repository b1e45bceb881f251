package memory

import (
	"context"
	"testing"

	"github.com/hilthontt/civicreport/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemoDirectory(t *testing.T) {
	users, depts := DemoDirectory()

	userStore := NewUserStore(users...)
	deptStore := NewDepartmentStore(depts...)
	ctx := context.Background()

	for _, d := range depts {
		assert.True(t, domain.IsKnownDepartment(d.Key), d.Key)
		assert.NotEqual(t, domain.DeptNone, d.Key)

		sup, err := userStore.GetByID(ctx, d.SupervisorID)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleSupervisor, sup.Role)
		assert.Equal(t, d.Key, sup.Department)
	}

	roads, err := deptStore.GetByKey(ctx, "roads")
	require.NoError(t, err)
	assert.Equal(t, "sup-roads", roads.SupervisorID)

	admins, err := userStore.ListByRole(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Len(t, admins, 1)
}

func TestUserStore(t *testing.T) {
	store := NewUserStore(
		domain.User{ID: "w2", Name: "Bea", Role: domain.RoleWorker},
		domain.User{ID: "w1", Name: "Ann", Role: domain.RoleWorker},
		domain.User{ID: "s1", Name: "Sam", Role: domain.RoleSupervisor},
	)
	ctx := context.Background()

	workers, err := store.ListByRole(ctx, domain.RoleWorker)
	require.NoError(t, err)
	require.Len(t, workers, 2)
	assert.Equal(t, "w1", workers[0].ID)

	_, err = store.GetByID(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, store.Upsert(ctx, &domain.User{}), domain.ErrInvalidInput)
	require.NoError(t, store.Upsert(ctx, &domain.User{ID: "w1", Name: "Ann", Role: domain.RoleSupervisor}))
	u, err := store.GetByID(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSupervisor, u.Role)
}

func TestDepartmentStoreNotFound(t *testing.T) {
	_, err := NewDepartmentStore().GetByKey(context.Background(), "roads")
	assert.ErrorIs(t, err, domain.ErrDepartmentNotFound)
}
