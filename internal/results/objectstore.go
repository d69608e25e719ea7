package results

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/shaiso/Gridflow/internal/domain"
)

// ObjectStoreConfig — подключение к S3-совместимому хранилищу результатов.
type ObjectStoreConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// ObjectStoreConfigFromEnv читает конфигурацию из окружения.
func ObjectStoreConfigFromEnv() ObjectStoreConfig {
	return ObjectStoreConfig{
		Endpoint:  envOr("MINIO_ENDPOINT", "localhost:9000"),
		AccessKey: envOr("MINIO_ACCESS_KEY", "gridflow"),
		SecretKey: envOr("MINIO_SECRET_KEY", "gridflowminio"),
		Bucket:    envOr("MINIO_BUCKET", "results"),
		UseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewObjectStoreClient создаёт клиент к хранилищу результатов.
func NewObjectStoreClient(cfg ObjectStoreConfig) (*minio.Client, error) {
	if strings.Contains(cfg.Endpoint, "://") {
		return nil, fmt.Errorf("minio endpoint must not include scheme: %q", cfg.Endpoint)
	}

	return minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
}

// EnsureBucket создаёт bucket результатов, если его ещё нет.
func EnsureBucket(ctx context.Context, client *minio.Client, bucket string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("bucket exists %s: %w", bucket, err)
	}
	if exists {
		return nil
	}
	if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("make bucket %s: %w", bucket, err)
	}
	return nil
}

// ObjectStoreProvider хранит результаты одного kind как объекты
// <prefix>/<result id> в общем bucket'е.
type ObjectStoreProvider struct {
	client *minio.Client
	bucket string
	kind   domain.ResultKind
	prefix string
}

// NewObjectStoreProvider создаёт провайдера для kind.
// prefix — каталог объектов этого kind внутри bucket'а.
func NewObjectStoreProvider(client *minio.Client, bucket string, kind domain.ResultKind, prefix string) *ObjectStoreProvider {
	return &ObjectStoreProvider{
		client: client,
		bucket: bucket,
		kind:   kind,
		prefix: strings.TrimSuffix(prefix, "/"),
	}
}

// Kind возвращает тег результатов провайдера.
func (p *ObjectStoreProvider) Kind() domain.ResultKind {
	return p.kind
}

// GetResult возвращает payload результата.
func (p *ObjectStoreProvider) GetResult(ctx context.Context, resultID uuid.UUID) ([]byte, error) {
	obj, err := p.client.GetObject(ctx, p.bucket, p.key(resultID), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get result %s: %w", resultID, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("%w: %s", ErrResultNotFound, resultID)
		}
		return nil, fmt.Errorf("read result %s: %w", resultID, err)
	}
	return data, nil
}

// DeleteResult удаляет payload результата.
// RemoveObject в S3 идемпотентен: отсутствующий объект — не ошибка.
func (p *ObjectStoreProvider) DeleteResult(ctx context.Context, resultID uuid.UUID) error {
	err := p.client.RemoveObject(ctx, p.bucket, p.key(resultID), minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("delete result %s: %w", resultID, err)
	}
	return nil
}

func (p *ObjectStoreProvider) key(resultID uuid.UUID) string {
	return p.prefix + "/" + resultID.String()
}

func isNoSuchKey(err error) bool {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code == "NoSuchKey"
	}
	return false
}
