package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/weizhangcs/vss-cloud/internal/model/dubbing"
	"github.com/weizhangcs/vss-cloud/internal/model/narration"
)

// EnsureIndexes 创建所有模型的索引
// 应用启动时统一入口，模型通过 Model 接口自行声明索引
func EnsureIndexes(db *mongo.Database) error {
	ctx := context.Background()

	models := []Model{
		&narration.Script{},
		&dubbing.Track{},
	}

	return EnsureAllIndexes(ctx, db, models...)
}
