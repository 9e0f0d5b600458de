package utils

import (
	"bytes"
	"crypto/rand"
	"errors"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/image/draw"
)

var (
	ErrNoFileUploaded = errors.New("no file uploaded")
	ErrFileTooLarge   = errors.New("file size exceeds limit")
	ErrFileEmpty      = errors.New("uploaded file is empty")
	ErrNotAVideo      = errors.New("uploaded file is not a video")
)

var allowedVideoExts = []string{".mp4", ".mov", ".m4v", ".avi", ".mkv", ".webm", ".3gp"}

const defaultVideoSuffix = ".mp4"

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	ValidateVideoFile(file *multipart.FileHeader) error
	SaveToTempFile(dir string, suffix string, src io.Reader) (string, error)
	ResizeFrame(frame image.Image, width, height int) image.Image
	EncodeJPEG(frame image.Image, quality int) ([]byte, error)
}

type utils struct {
	maxFileSize int64
}

func New(maxFileSize int64) IUtils {
	if maxFileSize <= 0 {
		maxFileSize = 200 * 1024 * 1024
	}
	return &utils{
		maxFileSize: maxFileSize,
	}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

// ValidateVideoFile accepts a video/* content type, or an application/octet-stream upload
// whose extension is a known container. Mobile clients often send the latter.
func (u *utils) ValidateVideoFile(file *multipart.FileHeader) error {
	if file == nil {
		return ErrNoFileUploaded
	}

	if file.Size <= 0 {
		return ErrFileEmpty
	}

	if file.Size > u.maxFileSize {
		return ErrFileTooLarge
	}

	contentType := strings.ToLower(file.Header.Get("Content-Type"))
	if strings.HasPrefix(contentType, "video/") {
		return nil
	}

	if contentType == "" || contentType == "application/octet-stream" {
		ext := strings.ToLower(filepath.Ext(file.Filename))
		for _, allowed := range allowedVideoExts {
			if ext == allowed {
				return nil
			}
		}
	}

	return ErrNotAVideo
}

// SaveToTempFile copies src into a new file under dir and returns its path. The caller
// owns the file and must remove it.
func (u *utils) SaveToTempFile(dir string, suffix string, src io.Reader) (string, error) {
	if suffix == "" {
		suffix = defaultVideoSuffix
	}

	tmp, err := os.CreateTemp(dir, "upload-*"+suffix)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}

	return tmp.Name(), nil
}

// ResizeFrame scales frame to exactly width x height. Aspect ratio is not preserved so
// that box coordinates map back to the source with independent x and y factors.
func (u *utils) ResizeFrame(frame image.Image, width, height int) image.Image {
	bounds := frame.Bounds()
	if width <= 0 || height <= 0 || (bounds.Dx() == width && bounds.Dy() == height) {
		return frame
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), frame, bounds, draw.Src, nil)

	return dst
}

func (u *utils) EncodeJPEG(frame image.Image, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
