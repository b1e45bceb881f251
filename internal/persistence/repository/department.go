package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/hilthontt/civicreport/internal/domain"
	"github.com/hilthontt/civicreport/internal/persistence/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type departmentRepository struct {
	db *mongo.Database
}

func NewDepartmentRepository(db *mongo.Database) domain.DepartmentRepository {
	return &departmentRepository{
		db: db,
	}
}

func (r *departmentRepository) GetByKey(ctx context.Context, key string) (*domain.Department, error) {
	collection := r.db.Collection(db.DepartmentsCollection)

	var dept domain.Department
	if err := collection.FindOne(ctx, bson.M{"_id": key}).Decode(&dept); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrDepartmentNotFound
		}
		return nil, fmt.Errorf("failed to load department %s: %w", key, err)
	}
	return &dept, nil
}

func (r *departmentRepository) List(ctx context.Context) ([]domain.Department, error) {
	collection := r.db.Collection(db.DepartmentsCollection)

	cursor, err := collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	depts := []domain.Department{}
	if err := cursor.All(ctx, &depts); err != nil {
		return nil, err
	}
	return depts, nil
}

func (r *departmentRepository) Upsert(ctx context.Context, dept *domain.Department) error {
	collection := r.db.Collection(db.DepartmentsCollection)

	_, err := collection.ReplaceOne(ctx, bson.M{"_id": dept.Key}, dept, options.Replace().SetUpsert(true))
	return err
}
