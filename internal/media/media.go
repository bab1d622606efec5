// Package media stores uploaded payment proofs and contact attachments in a
// gocloud blob bucket and hands back their public URL.
package media

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// Kind selects the validation rules and folder of an upload.
type Kind int

const (
	KindImage Kind = iota
	KindVideo
)

type rule struct {
	folder     string
	extensions map[string]string
	maxSize    int64
}

var rules = map[Kind]rule{
	KindImage: {
		folder: "images",
		extensions: map[string]string{
			".jpg":  "image/jpeg",
			".jpeg": "image/jpeg",
			".png":  "image/png",
			".webp": "image/webp",
		},
		maxSize: 5 << 20,
	},
	KindVideo: {
		folder: "videos",
		extensions: map[string]string{
			".mp4":  "video/mp4",
			".mov":  "video/quicktime",
			".webm": "video/webm",
		},
		maxSize: 50 << 20,
	},
}

// ErrRejected marks files refused before anything was stored.
var ErrRejected = errors.New("file rejected")

// File is an uploaded file independent of the transport it arrived on.
type File struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// FromHeader adapts a multipart file header.
func FromHeader(h *multipart.FileHeader) File {
	return File{
		Name: h.Filename,
		Size: h.Size,
		Open: func() (io.ReadCloser, error) { return h.Open() },
	}
}

//go:generate mockgen -source=media.go -destination=../mocks/mock_uploader.go -package=mocks

// Uploader stores files and removes them again.
type Uploader interface {
	Upload(ctx context.Context, kind Kind, file File) (string, error)
	Delete(ctx context.Context, fileURL string) error
}

// Bucket is the blob-backed Uploader.
type Bucket struct {
	bucket    *blob.Bucket
	publicURL string
}

// NewBucket serves keys of b below publicURL.
func NewBucket(b *blob.Bucket, publicURL string) *Bucket {
	return &Bucket{bucket: b, publicURL: strings.TrimRight(publicURL, "/")}
}

// Open opens bucketURL (file://, s3://, gs://, mem://). Local directories are
// created when missing.
func Open(ctx context.Context, bucketURL, publicURL string) (*Bucket, error) {
	u, err := url.Parse(bucketURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse MEDIA_BUCKET_URL")
	}
	if u.Scheme == "file" {
		if err := os.MkdirAll(filepath.FromSlash(u.Path), 0o755); err != nil {
			return nil, errors.Wrapf(err, "create media dir %s", u.Path)
		}
	}

	b, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, errors.Wrap(err, "open media bucket")
	}
	return NewBucket(b, publicURL), nil
}

func (b *Bucket) Close() error {
	return b.bucket.Close()
}

func (b *Bucket) Upload(ctx context.Context, kind Kind, file File) (string, error) {
	r, ok := rules[kind]
	if !ok {
		return "", errors.Errorf("unknown media kind %d", kind)
	}

	extension := strings.ToLower(filepath.Ext(file.Name))
	if extension == "" {
		return "", errors.Wrap(ErrRejected, "file extension is required")
	}
	contentType, ok := r.extensions[extension]
	if !ok {
		return "", errors.Wrapf(ErrRejected, "unsupported file type: %s", extension)
	}
	if file.Size > r.maxSize {
		return "", errors.Wrapf(ErrRejected, "file too large (max %dMB)", r.maxSize>>20)
	}

	key := path.Join(r.folder, primitive.NewObjectID().Hex()+extension)
	log.Printf("[UPLOAD] storing %s as %s", file.Name, key)

	in, err := file.Open()
	if err != nil {
		return "", errors.Wrapf(err, "open upload %s", file.Name)
	}
	defer in.Close()

	w, err := b.bucket.NewWriter(ctx, key, &blob.WriterOptions{ContentType: contentType})
	if err != nil {
		return "", errors.Wrapf(err, "create blob %s", key)
	}
	if _, err := io.Copy(w, in); err != nil {
		_ = w.Close()
		return "", errors.Wrapf(err, "write blob %s", key)
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrapf(err, "close blob %s", key)
	}

	return b.publicURL + "/" + key, nil
}

// Delete removes a file previously returned by Upload. Unknown or foreign
// URLs are refused; a missing blob is not an error.
func (b *Bucket) Delete(ctx context.Context, fileURL string) error {
	key, err := b.keyFor(fileURL)
	if err != nil {
		return err
	}
	if err := b.bucket.Delete(ctx, key); err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil
		}
		return errors.Wrapf(err, "delete blob %s", key)
	}
	return nil
}

func (b *Bucket) keyFor(fileURL string) (string, error) {
	trimmed := strings.TrimSpace(fileURL)
	if !strings.HasPrefix(trimmed, b.publicURL+"/") {
		return "", fmt.Errorf("refusing to delete foreign url: %s", fileURL)
	}
	key := path.Clean(strings.TrimPrefix(trimmed, b.publicURL+"/"))
	for _, r := range rules {
		if strings.HasPrefix(key, r.folder+"/") {
			return key, nil
		}
	}
	return "", fmt.Errorf("refusing to delete non-upload path: %s", fileURL)
}
