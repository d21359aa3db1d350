package storage

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"popx/internal/pkg/errs"
)

const (
	// MaxAvatarSizeMB is the maximum allowed avatar size in megabytes.
	MaxAvatarSizeMB = 5

	// MaxAvatarSize is the maximum allowed avatar size in bytes.
	MaxAvatarSize = MaxAvatarSizeMB * 1024 * 1024

	maxNameLength = 64
)

// AllowedMIMETypes defines the set of permitted MIME types for avatars.
var AllowedMIMETypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
}

// ExtToMIME maps file extensions to their corresponding MIME types.
var ExtToMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ValidateFileSize checks if the declared file size is within acceptable limits.
func ValidateFileSize(fileSize int64) *errs.CustomError {
	if fileSize <= 0 {
		return errs.NewError(errs.ErrInvalidParams)
	}

	if fileSize > MaxAvatarSize {
		return errs.NewError(errs.ErrFileSizeTooLarge)
	}

	return nil
}

// ValidateFileType checks that the MIME type is allowed and agrees with the file extension.
func ValidateFileType(fileName string, mimeType string) *errs.CustomError {
	lowerMimeType := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(lowerMimeType, ';'); i >= 0 {
		lowerMimeType = strings.TrimSpace(lowerMimeType[:i])
	}

	if _, ok := AllowedMIMETypes[lowerMimeType]; !ok {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	expectedMIME, ok := ExtToMIME[ext]
	if !ok || expectedMIME != lowerMimeType {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	return nil
}

// ValidateAvatar runs the size check and then the type check.
func ValidateAvatar(fileName, mimeType string, size int64) *errs.CustomError {
	if err := ValidateFileSize(size); err != nil {
		return err
	}
	return ValidateFileType(fileName, mimeType)
}

// NewObjectKey builds a storage key of the form "<unix-millis>-<uuid>-<safe-name>".
// The random component keeps keys distinct for uploads made in the same millisecond
// with the same original name.
func NewObjectKey(originalName string, now time.Time) string {
	return fmt.Sprintf("%d-%s-%s", now.UnixMilli(), uuid.NewString(), safeName(originalName))
}

func safeName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := strings.ToLower(filepath.Ext(base))
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	stem = strings.Trim(unsafeNameChars.ReplaceAllString(stem, "_"), "._")
	if stem == "" {
		stem = "avatar"
	}
	if len(stem) > maxNameLength {
		stem = stem[:maxNameLength]
	}
	return stem + unsafeNameChars.ReplaceAllString(ext, "")
}
