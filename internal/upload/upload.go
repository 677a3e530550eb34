package upload

import (
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"slices"
	"strings"
)

const (
	FieldName   = "images"
	MaxFiles    = 10
	MaxFileSize = 5 << 20

	// MaxFieldBytes bounds the text part of a submission.
	MaxFieldBytes   = 1 << 20
	MaxRequestBytes = MaxFiles*MaxFileSize + MaxFieldBytes

	// MaxMemory is how much of a multipart body is kept in memory before
	// spilling file parts to temporary files.
	MaxMemory = 8 << 20
)

// allowed image media types and the extension used when the original
// filename has none
var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// extensions a client filename may keep for each media type
var typeExtensions = map[string][]string{
	"image/jpeg": {".jpg", ".jpeg", ".jpe", ".jfif"},
	"image/png":  {".png"},
	"image/gif":  {".gif"},
}

// Error is an upload rejected before anything was written.
type Error struct {
	Status int
	Msg    string
}

func (e *Error) Error() string {
	return e.Msg
}

func AsError(err error) (*Error, bool) {
	var target *Error
	ok := errors.As(err, &target)
	return target, ok
}

// Image is an accepted uploaded file.
type Image struct {
	header      *multipart.FileHeader
	contentType string
}

func (i Image) Open() (multipart.File, error) {
	return i.header.Open()
}

func (i Image) Filename() string {
	return i.header.Filename
}

func (i Image) ContentType() string {
	return i.contentType
}

func (i Image) Size() int64 {
	return i.header.Size
}

// Extension returns the lower-cased extension of the original filename when
// it matches the declared media type, otherwise the type's default one. The
// stored file is served with a Content-Type derived from this extension.
func (i Image) Extension() string {
	ext := strings.ToLower(filepath.Ext(i.header.Filename))
	if slices.Contains(typeExtensions[i.contentType], ext) {
		return ext
	}
	return allowedImageTypes[i.contentType]
}

// Images checks every uploaded file against the limits and returns the
// images in submission order. Nothing is written here.
func Images(files map[string][]*multipart.FileHeader) ([]Image, error) {
	for field := range files {
		if field != FieldName {
			return nil, &Error{Status: http.StatusBadRequest, Msg: fmt.Sprintf("unexpected file field %q", field)}
		}
	}

	headers := files[FieldName]
	if len(headers) > MaxFiles {
		return nil, &Error{Status: http.StatusBadRequest, Msg: fmt.Sprintf("too many files: at most %d images are accepted", MaxFiles)}
	}

	images := make([]Image, 0, len(headers))
	for _, fh := range headers {
		contentType := mediaType(fh.Header.Get("Content-Type"))
		if _, ok := allowedImageTypes[contentType]; !ok {
			return nil, &Error{Status: http.StatusBadRequest, Msg: fmt.Sprintf("unsupported file type %q for %q: only JPEG, PNG and GIF images are accepted", contentType, fh.Filename)}
		}
		if fh.Size > MaxFileSize {
			return nil, &Error{Status: http.StatusRequestEntityTooLarge, Msg: fmt.Sprintf("file %q exceeds the %d MB limit", fh.Filename, MaxFileSize>>20)}
		}
		images = append(images, Image{header: fh, contentType: contentType})
	}
	return images, nil
}

func mediaType(header string) string {
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(header))
	}
	return mt
}
