package oss

import (
	"bytes"
	"fmt"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"

	"github.com/qs3c/research_go_server/config"
)

// Client 导出文件存储
type Client struct {
	bucket *oss.Bucket
}

// Enabled 是否配置了对象存储
func Enabled(cfg *config.OSSConfig) bool {
	return cfg.Endpoint != "" && cfg.BucketName != "" && cfg.AccessKeyID != ""
}

func NewClient(cfg *config.OSSConfig) (*Client, error) {
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}

	bucket, err := client.Bucket(cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}

	return &Client{bucket: bucket}, nil
}

// UploadFile 上传文件，文件名作为下载名
func (c *Client) UploadFile(objectKey string, data []byte, contentType, filename string) error {
	opts := []oss.Option{oss.ContentType(contentType)}
	if filename != "" {
		opts = append(opts, oss.ContentDisposition(fmt.Sprintf("attachment; filename=%q", filename)))
	}
	if err := c.bucket.PutObject(objectKey, bytes.NewReader(data), opts...); err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}
	return nil
}

// GetSignedURL 生成带签名的临时访问URL（默认1小时有效）
func (c *Client) GetSignedURL(objectKey string, expireSeconds int64) (string, error) {
	if expireSeconds <= 0 {
		expireSeconds = 3600
	}

	signedURL, err := c.bucket.SignURL(objectKey, oss.HTTPGet, expireSeconds)
	if err != nil {
		return "", fmt.Errorf("failed to generate signed URL: %w", err)
	}

	return signedURL, nil
}
