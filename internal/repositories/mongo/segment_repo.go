package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/coachline/coachline/internal/models"
)

const segmentCollection = "transcript_segments"

type SegmentRepository interface {
	Insert(ctx context.Context, seg *models.TranscriptSegment) error
	ListByStream(ctx context.Context, streamID string, limit int64) ([]models.TranscriptSegment, error)
}

type segmentRepo struct {
	col *mongo.Collection
}

func NewSegmentRepo(db *mongo.Database) SegmentRepository {
	return &segmentRepo{col: db.Collection(segmentCollection)}
}

// EnsureSegmentIndexes creates the TTL and stream lookup indexes.
func EnsureSegmentIndexes(ctx context.Context, db *mongo.Database) error {
	col := db.Collection(segmentCollection)
	_, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
		{
			Keys: bson.D{{Key: "stream_id", Value: 1}, {Key: "timestamp", Value: 1}},
		},
	})
	return err
}

func (r *segmentRepo) Insert(ctx context.Context, seg *models.TranscriptSegment) error {
	_, err := r.col.InsertOne(ctx, seg)
	return err
}

func (r *segmentRepo) ListByStream(ctx context.Context, streamID string, limit int64) ([]models.TranscriptSegment, error) {
	if limit <= 0 {
		limit = 100
	}
	cur, err := r.col.Find(ctx,
		bson.M{"stream_id": streamID},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}).SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.TranscriptSegment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
