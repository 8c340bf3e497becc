package archive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// PhotoArchive 盘点照片归档。所有操作尽力而为：
// 归档失败只记日志，绝不影响盘点流程。
// nil接收者安全，未配置MinIO时直接传nil
type PhotoArchive struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

// New 创建照片归档，确保bucket存在
func New(client *minio.Client, bucket string, logger *zap.Logger) *PhotoArchive {
	a := &PhotoArchive{client: client, bucket: bucket, logger: logger}
	if client == nil || bucket == "" {
		return a
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		logger.Warn("检查归档bucket失败", zap.String("bucket", bucket), zap.Error(err))
		return a
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			logger.Warn("创建归档bucket失败", zap.String("bucket", bucket), zap.Error(err))
		}
	}
	return a
}

// Store 归档一张照片，对象路径 taskNo/binLocation/name
func (a *PhotoArchive) Store(ctx context.Context, taskNo, binLocation, name string, data []byte, contentType string) {
	if a == nil || a.client == nil || a.bucket == "" || len(data) == 0 {
		return
	}
	objectName := fmt.Sprintf("%s/%s/%s", taskNo, binLocation, name)
	_, err := a.client.PutObject(ctx, a.bucket, objectName,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		a.logger.Warn("归档照片失败",
			zap.String("object", objectName),
			zap.Error(err))
		return
	}
	a.logger.Debug("照片已归档", zap.String("object", objectName))
}
