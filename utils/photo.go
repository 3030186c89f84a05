package utils

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/nfnt/resize"
)

const (
	MaxPhotoSize      = 5 * 1024 * 1024
	compressThreshold = 100 * 1024
	mainWidth         = 800
	previewSize       = 300
)

var ErrUnsupportedPhoto = fmt.Errorf("unsupported file format")

// PhotoStore puts product photos into an S3 bucket and hands back CDN URLs.
type PhotoStore struct {
	client  *minio.Client
	bucket  string
	cdnBase string
}

func NewPhotoStore(endpoint, accessKey, secretKey, bucket, cdnBase string, secure bool) (*PhotoStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 client: %v", err)
	}
	if cdnBase == "" {
		cdnBase = fmt.Sprintf("https://%s/%s", endpoint, bucket)
	}
	return &PhotoStore{client: client, bucket: bucket, cdnBase: strings.TrimRight(cdnBase, "/")}, nil
}

// Upload stores a main image and a thumbnail under products/<stockID>_<unix>.
func (p *PhotoStore) Upload(ctx context.Context, file *multipart.FileHeader, stockID string) (string, string, error) {
	if file.Size > MaxPhotoSize {
		return "", "", fmt.Errorf("file size exceeds the 5MB limit")
	}

	src, err := file.Open()
	if err != nil {
		return "", "", fmt.Errorf("failed to open uploaded file: %v", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return "", "", fmt.Errorf("failed to read image data: %v", err)
	}

	mainImg, previewImg, err := PreparePhoto(data, file.Header.Get("Content-Type"))
	if err != nil {
		return "", "", err
	}

	base := fmt.Sprintf("products/%s_%d", stockID, time.Now().Unix())
	mainName := base + ".jpg"
	previewName := base + "_preview.jpg"

	if err := p.put(ctx, mainName, mainImg); err != nil {
		return "", "", fmt.Errorf("failed to upload main image: %v", err)
	}
	if err := p.put(ctx, previewName, previewImg); err != nil {
		return "", "", fmt.Errorf("failed to upload preview image: %v", err)
	}
	return p.cdnBase + "/" + mainName, p.cdnBase + "/" + previewName, nil
}

func (p *PhotoStore) put(ctx context.Context, name string, data []byte) error {
	_, err := p.client.PutObject(ctx, p.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "image/jpeg",
	})
	return err
}

// PreparePhoto decodes a JPEG or PNG and returns the JPEG bytes for the main
// image (downscaled to 800px wide when large) and a 300px thumbnail.
func PreparePhoto(data []byte, contentType string) ([]byte, []byte, error) {
	var (
		img image.Image
		err error
	)
	switch contentType {
	case "image/png":
		img, err = png.Decode(bytes.NewReader(data))
	case "image/jpeg":
		img, err = jpeg.Decode(bytes.NewReader(data))
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedPhoto, contentType)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode image: %v", err)
	}

	var main bytes.Buffer
	if len(data) >= compressThreshold || contentType == "image/png" {
		out := img
		if img.Bounds().Dx() > mainWidth {
			out = resize.Resize(mainWidth, 0, img, resize.Lanczos3)
		}
		if err := jpeg.Encode(&main, out, &jpeg.Options{Quality: 80}); err != nil {
			return nil, nil, fmt.Errorf("failed to encode resized image: %v", err)
		}
	} else {
		main.Write(data)
	}

	var preview bytes.Buffer
	thumb := resize.Thumbnail(previewSize, previewSize, img, resize.Lanczos3)
	if err := jpeg.Encode(&preview, thumb, &jpeg.Options{Quality: 75}); err != nil {
		return nil, nil, fmt.Errorf("failed to encode preview image: %v", err)
	}
	return main.Bytes(), preview.Bytes(), nil
}
