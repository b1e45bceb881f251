package domain

import "context"

type Department struct {
	Key          string `bson:"_id" json:"key"`
	Name         string `bson:"name" json:"name"`
	SupervisorID string `bson:"supervisorId,omitempty" json:"supervisorId,omitempty"`
}

type DepartmentRepository interface {
	GetByKey(ctx context.Context, key string) (*Department, error)
	List(ctx context.Context) ([]Department, error)
	Upsert(ctx context.Context, dept *Department) error
}
