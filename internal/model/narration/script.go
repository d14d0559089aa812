package narration

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	pkgnarration "github.com/weizhangcs/vss-cloud/internal/pkg/narration"
)

// Script 解说脚本实体
// 一次解说生成的持久化结果，配音请求通过 input_narration_ref 消费
type Script struct {
	ID        string `bson:"id" json:"id"`                 // 脚本ID（UUID）
	AssetName string `bson:"asset_name" json:"asset_name"` // 作品名
	AssetID   string `bson:"asset_id" json:"asset_id"`     // 作品ID

	// 生成参数快照
	ControlParams *pkgnarration.ControlParams `bson:"control_params,omitempty" json:"control_params,omitempty"`
	Query         string                      `bson:"query,omitempty" json:"query,omitempty"` // 实际使用的检索查询

	// 生成结果
	Segments []*pkgnarration.Segment `bson:"segments" json:"segments"` // 解说片段，升序时间线
	Usage    *pkgnarration.Usage     `bson:"usage,omitempty" json:"usage,omitempty"`

	// 状态
	Status ScriptStatus `bson:"status" json:"status"`
	Error  string       `bson:"error,omitempty" json:"error,omitempty"` // 失败原因

	// 时间戳
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
}

// ScriptStatus 解说脚本状态
type ScriptStatus string

const (
	ScriptStatusPending   ScriptStatus = "pending"   // 生成中
	ScriptStatusCompleted ScriptStatus = "completed" // 已完成
	ScriptStatusFailed    ScriptStatus = "failed"    // 失败
)

// Collection 返回集合名称
func (s *Script) Collection() string {
	return "narration_scripts"
}

// EnsureIndexes 创建和维护索引
func (s *Script) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(s.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{bson.E{Key: "id", Value: 1}},
			Options: options.Index().SetName("idx_id").SetUnique(true),
		},
		{
			Keys:    bson.D{bson.E{Key: "asset_id", Value: 1}, bson.E{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_asset_created"),
		},
		{
			Keys:    bson.D{bson.E{Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_status"),
		},
	}

	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}
