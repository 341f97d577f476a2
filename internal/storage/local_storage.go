package storage

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/certolo/certolo-backend/config"
	"github.com/certolo/certolo-backend/pkg/logger"
)

// StoredFile describes a file written under the upload root.
type StoredFile struct {
	FileName    string // generated name on disk
	RelPath     string // relative to the upload root, forward slashes
	Size        int64
	ContentType string
}

// LocalStorage keeps uploaded documents on the local filesystem. All
// paths handed out or accepted are relative to the configured root.
type LocalStorage struct {
	root        string
	maxSize     int64
	allowedExts map[string]struct{}
}

// sniffedTypesByExt lists the content types the sniffer may report for
// each allowed extension. application/octet-stream means the sniffer
// gave up and is accepted everywhere.
var sniffedTypesByExt = map[string][]string{
	".pdf":  {"application/pdf"},
	".png":  {"image/png"},
	".jpg":  {"image/jpeg"},
	".jpeg": {"image/jpeg"},
	".doc":  {"application/msword", "application/x-ole-storage"},
	".xls":  {"application/vnd.ms-excel", "application/x-ole-storage"},
	".docx": {"application/zip"},
	".xlsx": {"application/zip"},
}

func NewLocalStorage(cfg *config.UploadConfig) (*LocalStorage, error) {
	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload root: %w", err)
	}

	allowed := make(map[string]struct{}, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		allowed["."+strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}

	logger.Info("Local storage initialized", map[string]interface{}{
		"root":     cfg.Root,
		"max_size": cfg.MaxSize,
	})

	return &LocalStorage{
		root:        cfg.Root,
		maxSize:     cfg.MaxSize,
		allowedExts: allowed,
	}, nil
}

// Validate checks one upload against the policy and returns the sniffed
// content type plus every problem found, not just the first one.
func (s *LocalStorage) Validate(originalName string, size int64, head []byte) (string, []string) {
	var problems []string

	if size > s.maxSize {
		problems = append(problems, fmt.Sprintf(
			"file is %.1f MB, the maximum allowed size is %.1f MB",
			float64(size)/(1<<20), float64(s.maxSize)/(1<<20)))
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	if _, ok := s.allowedExts[ext]; !ok {
		problems = append(problems, fmt.Sprintf("file type %q is not allowed", ext))
	}

	contentType := http.DetectContentType(head)
	// DetectContentType appends charset parameters to text types.
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}

	if expected, ok := sniffedTypesByExt[ext]; ok && contentType != "application/octet-stream" {
		matched := false
		for _, want := range expected {
			if contentType == want {
				matched = true
				break
			}
		}
		if !matched {
			problems = append(problems, fmt.Sprintf(
				"file content (%s) does not match the %s extension", contentType, ext))
		}
	}

	return contentType, problems
}

// Store writes src under root/subdir with a collision-free generated
// name and returns where it landed. The caller validates first.
func (s *LocalStorage) Store(src io.Reader, originalName, subdir string) (*StoredFile, error) {
	dir := filepath.Join(s.root, filepath.Clean("/"+subdir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Error("Failed to create upload directory", err, map[string]interface{}{
			"dir": dir,
		})
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	name := generateFileName(originalName)
	absPath := filepath.Join(dir, name)

	dst, err := os.OpenFile(absPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		logger.Error("Failed to create upload file", err, map[string]interface{}{
			"path": absPath,
		})
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	written, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(absPath)
		logger.Error("Failed to write upload file", err, map[string]interface{}{
			"path": absPath,
		})
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	relPath := filepath.ToSlash(filepath.Join(filepath.Clean("/"+subdir), name))
	relPath = strings.TrimPrefix(relPath, "/")

	logger.Debug("File stored", map[string]interface{}{
		"rel_path": relPath,
		"size":     written,
	})

	return &StoredFile{
		FileName: name,
		RelPath:  relPath,
		Size:     written,
	}, nil
}

// Delete removes a stored file. Deleting a file that is already gone is
// not an error, so cleanup paths can run more than once.
func (s *LocalStorage) Delete(relPath string) error {
	absPath, err := s.AbsPath(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(absPath); err != nil && !os.IsNotExist(err) {
		logger.Error("Failed to delete stored file", err, map[string]interface{}{
			"rel_path": relPath,
		})
		return err
	}
	return nil
}

// AbsPath resolves a stored relative path and refuses anything that
// would escape the upload root.
func (s *LocalStorage) AbsPath(relPath string) (string, error) {
	cleaned := filepath.Clean("/" + filepath.FromSlash(relPath))
	if strings.Contains(relPath, "..") {
		return "", fmt.Errorf("invalid file path: %s", relPath)
	}
	return filepath.Join(s.root, cleaned), nil
}

// generateFileName builds "<sanitized-base>_<timestamp>_<random><ext>"
// so concurrent uploads of the same document never collide.
func generateFileName(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	base := strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName))

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	sanitized := b.String()
	if len(sanitized) > 50 {
		sanitized = sanitized[:50]
	}
	if sanitized == "" {
		sanitized = "file"
	}

	suffix := make([]byte, 4)
	rand.Read(suffix)

	return fmt.Sprintf("%s_%d_%s%s", sanitized, time.Now().UnixNano(), hex.EncodeToString(suffix), ext)
}
