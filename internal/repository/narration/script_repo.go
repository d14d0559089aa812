package narration

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/weizhangcs/vss-cloud/internal/model/narration"
)

// ScriptRepository 解说脚本仓库接口
type ScriptRepository interface {
	Create(ctx context.Context, s *narration.Script) error
	FindByID(ctx context.Context, id string) (*narration.Script, error)
	FindLatestByAsset(ctx context.Context, assetID string) (*narration.Script, error)
	Update(ctx context.Context, s *narration.Script) error
	UpdateStatus(ctx context.Context, id string, status narration.ScriptStatus, errMsg string) error
	Delete(ctx context.Context, id string) error
}

// ScriptRepo 解说脚本仓库实现
type ScriptRepo struct {
	coll *mongo.Collection
}

// NewScriptRepo 创建解说脚本仓库
func NewScriptRepo(db *mongo.Database) *ScriptRepo {
	var s narration.Script
	return &ScriptRepo{coll: db.Collection(s.Collection())}
}

// Create 创建解说脚本
func (r *ScriptRepo) Create(ctx context.Context, s *narration.Script) error {
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
	if s.Status == "" {
		s.Status = narration.ScriptStatusCompleted
	}
	_, err := r.coll.InsertOne(ctx, s)
	return err
}

// FindByID 根据ID查询解说脚本
func (r *ScriptRepo) FindByID(ctx context.Context, id string) (*narration.Script, error) {
	var s narration.Script
	if err := r.coll.FindOne(ctx, bson.M{"id": id, "deleted_at": nil}).Decode(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// FindLatestByAsset 查询作品最新的未删除脚本
func (r *ScriptRepo) FindLatestByAsset(ctx context.Context, assetID string) (*narration.Script, error) {
	var s narration.Script
	filter := bson.M{"asset_id": assetID, "deleted_at": nil}
	opts := options.FindOne().SetSort(bson.M{"created_at": -1})
	if err := r.coll.FindOne(ctx, filter, opts).Decode(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Update 回写整个脚本文档
// 用于生成完成后补写检索查询、片段和用量
func (r *ScriptRepo) Update(ctx context.Context, s *narration.Script) error {
	s.UpdatedAt = time.Now()
	_, err := r.coll.ReplaceOne(ctx, bson.M{"id": s.ID}, s)
	return err
}

// UpdateStatus 更新脚本状态
func (r *ScriptRepo) UpdateStatus(ctx context.Context, id string, status narration.ScriptStatus, errMsg string) error {
	_, err := r.coll.UpdateOne(
		ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{
			"status":     status,
			"error":      errMsg,
			"updated_at": time.Now(),
		}},
	)
	return err
}

// Delete 软删除解说脚本
func (r *ScriptRepo) Delete(ctx context.Context, id string) error {
	_, err := r.coll.UpdateOne(
		ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{
			"deleted_at": time.Now(),
			"updated_at": time.Now(),
		}},
	)
	return err
}
