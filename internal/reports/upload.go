package reports

import (
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"medscan-backend/internal/shared/util"
)

// AllowedExtensions are the image types accepted for analysis.
var AllowedExtensions = []string{"jpg", "jpeg", "png", "bmp", "gif"}

// ValidateFileName checks that name has an accepted image extension.
func ValidateFileName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}
	ext := util.Ext(name)
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return nil
		}
	}
	return fmt.Errorf("%w: %s: unsupported file type, allowed: %s", ErrInvalidInput, name, strings.Join(AllowedExtensions, ", "))
}

// UploadsFromForm validates multipart files and wraps them as Uploads, preserving form order.
func UploadsFromForm(files []*multipart.FileHeader) ([]Upload, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: at least one file is required", ErrInvalidInput)
	}
	uploads := make([]Upload, 0, len(files))
	for _, fh := range files {
		if err := ValidateFileName(fh.Filename); err != nil {
			return nil, err
		}
		fh := fh
		uploads = append(uploads, Upload{
			FileName: fh.Filename,
			Open:     func() (io.ReadCloser, error) { return fh.Open() },
		})
	}
	return uploads, nil
}
