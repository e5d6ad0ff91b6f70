package minioutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Access   string `yaml:"access"`
	Secret   string `yaml:"secret"`
	Bucket   string `yaml:"bucket"`
	Endpoint string `yaml:"endpoint"`
	Region   string `yaml:"region"`
	// use http instead of https e.g. for local minio server
	Insecure     bool      `yaml:"insecure"`
	RequestTrace io.Writer `yaml:"-"`
}

// IsConfigured returns true if all required fields are set
func (c *Config) IsConfigured() bool {
	return c != nil && c.Access != "" && c.Secret != "" && c.Bucket != "" && c.Endpoint != ""
}

type Client struct {
	Client *minio.Client
	config *Config
	Bucket string
}

func New(ctx context.Context, config *Config) (*Client, error) {
	if config == nil {
		return nil, errors.New("must provide config")
	}
	c := config
	if !c.IsConfigured() {
		return nil, errors.New("must provide all fields in config")
	}

	mc, err := minio.New(c.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.Access, c.Secret, ""),
		Region: config.Region,
		Secure: !config.Insecure,
	})
	if err != nil {
		return nil, err
	}
	if config.RequestTrace != nil {
		mc.TraceOn(config.RequestTrace)
	}
	found, err := mc.BucketExists(ctx, c.Bucket)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("bucket '%s' doesn't exist", c.Bucket)
	}

	return &Client{
		Client: mc,
		config: config,
		Bucket: config.Bucket,
	}, nil
}

func (c *Client) URLBase() string {
	url := c.Client.EndpointURL()
	return fmt.Sprintf("%s://%s/%s/", url.Scheme, url.Host, c.Bucket)
}

func (c *Client) URLForPath(remotePath string) string {
	return c.URLBase() + strings.TrimPrefix(remotePath, "/")
}

func (c *Client) Exists(ctx context.Context, remotePath string) bool {
	_, err := c.Client.StatObject(ctx, c.Bucket, remotePath, minio.StatObjectOptions{})
	return err == nil
}

// contentType is based on extension of remotePath with
// compression extension (.br) stripped
func contentType(remotePath string) string {
	ext := path.Ext(strings.TrimSuffix(remotePath, ".br"))
	return mime.TypeByExtension(ext)
}

func BrotliCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, brotli.BestCompression)
	_, err := w.Write(data)
	if err != nil {
		return nil, err
	}
	err = w.Close()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func BrotliDecompress(data []byte) ([]byte, error) {
	return io.ReadAll(brotli.NewReader(bytes.NewReader(data)))
}

// UploadDataBrotliCompressed compresses data with brotli and uploads it.
// remotePath should end with .br
func (c *Client) UploadDataBrotliCompressed(ctx context.Context, remotePath string, data []byte) (minio.UploadInfo, error) {
	d, err := BrotliCompress(data)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	opts := minio.PutObjectOptions{
		ContentType:     contentType(remotePath),
		ContentEncoding: "br",
	}
	r := bytes.NewReader(d)
	return c.Client.PutObject(ctx, c.Bucket, remotePath, r, int64(len(d)), opts)
}

func (c *Client) ListObjects(ctx context.Context, prefix string) <-chan minio.ObjectInfo {
	opts := minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}
	return c.Client.ListObjects(ctx, c.Bucket, opts)
}

func (c *Client) Remove(ctx context.Context, remotePath string) error {
	opts := minio.RemoveObjectOptions{}
	return c.Client.RemoveObject(ctx, c.Bucket, remotePath, opts)
}
