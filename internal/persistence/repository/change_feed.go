package repository

import (
	"context"
	"time"

	"github.com/hilthontt/civicreport/internal/domain"
	"github.com/hilthontt/civicreport/internal/infrastructure/logging"
	"github.com/hilthontt/civicreport/internal/persistence/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const changeStreamRetryDelay = 2 * time.Second

type changeEvent struct {
	DocumentKey struct {
		ID string `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument *domain.Report `bson:"fullDocument"`
}

type changeFeed struct {
	db     *mongo.Database
	logger logging.Logger
}

// NewChangeFeed streams report inserts and updates with the post-image
// looked up by the server. Requires a replica set.
func NewChangeFeed(db *mongo.Database, logger logging.Logger) domain.ChangeFeed {
	return &changeFeed{db: db, logger: logger}
}

func (f *changeFeed) Watch(ctx context.Context) (<-chan domain.ReportChange, error) {
	stream, err := f.open(ctx, nil)
	if err != nil {
		return nil, err
	}

	out := make(chan domain.ReportChange, 64)
	go f.pump(ctx, stream, out)
	return out, nil
}

func (f *changeFeed) open(ctx context.Context, resumeToken bson.Raw) (*mongo.ChangeStream, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "operationType", Value: bson.D{{Key: "$in", Value: bson.A{"insert", "update", "replace"}}}},
		}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	if resumeToken != nil {
		opts.SetResumeAfter(resumeToken)
	}
	return f.db.Collection(db.ReportsCollection).Watch(ctx, pipeline, opts)
}

// pump forwards events until ctx ends, reopening the stream from the last
// resume token after transient failures.
func (f *changeFeed) pump(ctx context.Context, stream *mongo.ChangeStream, out chan<- domain.ReportChange) {
	defer close(out)

	var resumeToken bson.Raw
	for {
		for stream.Next(ctx) {
			var ev changeEvent
			if err := stream.Decode(&ev); err != nil {
				f.logger.Error(logging.MongoDB, logging.ChangeStream, "failed to decode change event", map[logging.ExtraKey]any{
					logging.ErrorMessage: err.Error(),
				})
				continue
			}
			resumeToken = stream.ResumeToken()

			if ev.FullDocument == nil {
				continue
			}
			select {
			case out <- domain.ReportChange{ReportID: ev.DocumentKey.ID, Report: ev.FullDocument}:
			case <-ctx.Done():
				_ = stream.Close(context.Background())
				return
			}
		}

		err := stream.Err()
		_ = stream.Close(context.Background())
		if ctx.Err() != nil {
			return
		}

		f.logger.Warn(logging.MongoDB, logging.ChangeStream, "change stream interrupted, reopening", map[logging.ExtraKey]any{
			logging.ErrorMessage: errString(err),
		})

		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(changeStreamRetryDelay):
			}
			stream, err = f.open(ctx, resumeToken)
			if err == nil {
				break
			}
			f.logger.Error(logging.MongoDB, logging.ChangeStream, "failed to reopen change stream", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
