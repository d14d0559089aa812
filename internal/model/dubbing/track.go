package dubbing

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	pkgdubbing "github.com/weizhangcs/vss-cloud/internal/pkg/dubbing"
)

// Track 配音音轨实体
// 一次配音渲染的持久化结果：逐条配音脚本加整轨产物
type Track struct {
	ID          string `bson:"id" json:"id"`                     // 音轨ID（UUID）
	NarrationID string `bson:"narration_id" json:"narration_id"` // 消费的解说脚本ID
	Template    string `bson:"template" json:"template"`         // 合成模版名

	// 渲染结果
	DubbingScript []pkgdubbing.ScriptEntry `bson:"dubbing_script" json:"dubbing_script"`
	TrackKey      string                   `bson:"track_key,omitempty" json:"track_key,omitempty"` // 整轨存储 key
	TotalDuration float64                  `bson:"total_duration" json:"total_duration"`           // 整轨时长（秒）

	// 状态
	Status TrackStatus `bson:"status" json:"status"`
	Error  string      `bson:"error,omitempty" json:"error,omitempty"`

	// 时间戳
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
}

// TrackStatus 配音音轨状态
type TrackStatus string

const (
	TrackStatusPending   TrackStatus = "pending"
	TrackStatusCompleted TrackStatus = "completed"
	TrackStatusFailed    TrackStatus = "failed"
)

// Collection 返回集合名称
func (t *Track) Collection() string {
	return "dubbing_tracks"
}

// EnsureIndexes 创建和维护索引
func (t *Track) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(t.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{bson.E{Key: "id", Value: 1}},
			Options: options.Index().SetName("idx_id").SetUnique(true),
		},
		{
			Keys:    bson.D{bson.E{Key: "narration_id", Value: 1}, bson.E{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_narration_created"),
		},
	}

	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}
