package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/hilthontt/civicreport/internal/domain"
	"github.com/hilthontt/civicreport/internal/infrastructure/tracing"
	"github.com/hilthontt/civicreport/internal/persistence/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/attribute"
)

type reportRepository struct {
	db *mongo.Database
}

func NewReportRepository(db *mongo.Database) domain.ReportRepository {
	return &reportRepository{
		db: db,
	}
}

func (r *reportRepository) collection() *mongo.Collection {
	return r.db.Collection(db.ReportsCollection)
}

// Create inserts the report with server-assigned timestamps. The filter
// never matches an existing document, so a duplicate id fails the upsert
// on the _id index instead of touching the stored report.
func (r *reportRepository) Create(ctx context.Context, report *domain.Report) (err error) {
	ctx, span := tracing.Start(ctx, "reports.create", attribute.String("report.id", report.ID))
	defer func() { tracing.End(span, err) }()

	doc, err := insertDocument(report)
	if err != nil {
		return err
	}

	filter := bson.M{"_id": report.ID, "createdAt": bson.M{"$exists": false}}
	update := bson.M{
		"$setOnInsert": doc,
		"$currentDate": bson.M{"createdAt": true, "updatedAt": true},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var stored domain.Report
	if err := r.collection().FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrReportAlreadyExists
		}
		return fmt.Errorf("failed to insert report: %w", err)
	}

	report.CreatedAt = stored.CreatedAt
	report.UpdatedAt = stored.UpdatedAt
	return nil
}

func insertDocument(report *domain.Report) (bson.M, error) {
	raw, err := bson.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	delete(doc, "_id")
	delete(doc, "createdAt")
	delete(doc, "updatedAt")
	return doc, nil
}

func (r *reportRepository) GetByID(ctx context.Context, id string) (*domain.Report, error) {
	var report domain.Report
	err := r.collection().FindOne(ctx, bson.M{"_id": id}).Decode(&report)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to load report %s: %w", id, err)
	}
	return &report, nil
}

// Mutate applies m as one FindOneAndUpdate. The guard is part of the
// filter, so the check and the write cannot interleave with another actor.
func (r *reportRepository) Mutate(ctx context.Context, id string, m domain.Mutation) (_ *domain.Report, err error) {
	ctx, span := tracing.Start(ctx, "reports.mutate",
		attribute.String("report.id", id),
		attribute.String("entry.kind", string(m.Entry.Kind)),
	)
	defer func() { tracing.End(span, err) }()

	filter := guardFilter(id, m.Guard)
	update := mutationUpdate(m)
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated domain.Report
	err = r.collection().FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update report %s: %w", id, err)
	}

	count, cerr := r.collection().CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if cerr != nil {
		return nil, fmt.Errorf("failed to check report %s: %w", id, cerr)
	}
	if count == 0 {
		return nil, domain.ErrReportNotFound
	}
	return nil, domain.ErrPreconditionFailed
}

func guardFilter(id string, g domain.Guard) bson.M {
	filter := bson.M{"_id": id}
	if len(g.StatusIn) > 0 {
		filter["status"] = bson.M{"$in": g.StatusIn}
	}
	if g.AssignedTo != "" {
		filter["assignedTo"] = g.AssignedTo
	}
	return filter
}

func mutationUpdate(m domain.Mutation) bson.M {
	set := bson.M{}
	if m.Status != nil {
		set["status"] = *m.Status
	}
	if m.Assignment != nil {
		set["assignedDept"] = m.Assignment.Dept
		set["assignedTo"] = domain.StringPtr(m.Assignment.SupervisorID)
		set["assignedToWorker"] = nil
		set["assignedWorkerName"] = ""
	}
	if m.Worker != nil {
		set["assignedToWorker"] = domain.StringPtr(m.Worker.WorkerID)
		set["assignedWorkerName"] = m.Worker.WorkerName
	}
	if m.Classification != nil {
		set["classification"] = m.Classification.Value
		set["classificationNote"] = m.Classification.Note
	}

	update := bson.M{
		"$currentDate": bson.M{"updatedAt": true},
		"$push":        bson.M{"statusHistory": m.Entry},
	}
	if len(set) > 0 {
		update["$set"] = set
	}
	return update
}

func scopeFilter(scope domain.Scope) (bson.M, bool) {
	switch scope.Role {
	case domain.RoleAdmin:
		return bson.M{}, true
	case domain.RoleCitizen:
		return bson.M{"reporterId": scope.UserID}, scope.UserID != ""
	case domain.RoleSupervisor:
		return bson.M{"assignedTo": scope.UserID}, scope.UserID != ""
	case domain.RoleWorker:
		return bson.M{"assignedToWorker": scope.UserID}, scope.UserID != ""
	}
	return nil, false
}

func (r *reportRepository) List(ctx context.Context, scope domain.Scope) (_ []domain.Report, err error) {
	ctx, span := tracing.Start(ctx, "reports.list", attribute.String("scope.role", string(scope.Role)))
	defer func() { tracing.End(span, err) }()

	filter, ok := scopeFilter(scope)
	if !ok {
		return []domain.Report{}, nil
	}

	opts := options.Find().SetSort(bson.D{
		{Key: "createdAt", Value: -1},
		{Key: "_id", Value: -1},
	})

	cursor, err := r.collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer cursor.Close(ctx)

	reports := []domain.Report{}
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, fmt.Errorf("failed to decode reports: %w", err)
	}

	return reports, nil
}
