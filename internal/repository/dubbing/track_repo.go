package dubbing

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/weizhangcs/vss-cloud/internal/model/dubbing"
)

// TrackRepository 配音音轨仓库接口
type TrackRepository interface {
	Create(ctx context.Context, t *dubbing.Track) error
	FindByID(ctx context.Context, id string) (*dubbing.Track, error)
	FindLatestByNarration(ctx context.Context, narrationID string) (*dubbing.Track, error)
}

// TrackRepo 配音音轨仓库实现
type TrackRepo struct {
	coll *mongo.Collection
}

// NewTrackRepo 创建配音音轨仓库
func NewTrackRepo(db *mongo.Database) *TrackRepo {
	var t dubbing.Track
	return &TrackRepo{coll: db.Collection(t.Collection())}
}

// Create 创建配音音轨
func (r *TrackRepo) Create(ctx context.Context, t *dubbing.Track) error {
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Status == "" {
		t.Status = dubbing.TrackStatusCompleted
	}
	_, err := r.coll.InsertOne(ctx, t)
	return err
}

// FindByID 根据ID查询配音音轨
func (r *TrackRepo) FindByID(ctx context.Context, id string) (*dubbing.Track, error) {
	var t dubbing.Track
	if err := r.coll.FindOne(ctx, bson.M{"id": id, "deleted_at": nil}).Decode(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// FindLatestByNarration 查询解说脚本最新的配音音轨
func (r *TrackRepo) FindLatestByNarration(ctx context.Context, narrationID string) (*dubbing.Track, error) {
	var t dubbing.Track
	filter := bson.M{"narration_id": narrationID, "deleted_at": nil}
	opts := options.FindOne().SetSort(bson.M{"created_at": -1})
	if err := r.coll.FindOne(ctx, filter, opts).Decode(&t); err != nil {
		return nil, err
	}
	return &t, nil
}
