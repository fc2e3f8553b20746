package runner

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/axionhq/relaywatch/internal/queue"
)

// SaveImages decodes inline attachments to temp files the worker can read.
// Attachments with empty data are skipped; a data: URL prefix is stripped
// before decoding. Returns the written paths.
func SaveImages(tempDir, jobID string, images []queue.Image) ([]string, error) {
	var paths []string
	for i, img := range images {
		if img.Data == "" {
			continue
		}
		data := img.Data
		if j := strings.Index(data, ","); j >= 0 {
			data = data[j+1:]
		}
		raw, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return paths, fmt.Errorf("decode image %d: %w", i, err)
		}
		path := filepath.Join(tempDir, fmt.Sprintf("%s_img%d.%s", jobID, i, imageExt(img.Type)))
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			return paths, fmt.Errorf("save image %d: %w", i, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// CleanupImages removes all temp images written for a job.
func CleanupImages(tempDir, jobID string) {
	matches, err := filepath.Glob(filepath.Join(tempDir, jobID+"_img*"))
	if err != nil {
		return
	}
	for _, m := range matches {
		_ = os.Remove(m)
	}
}

func imageExt(mime string) string {
	switch {
	case strings.Contains(mime, "jpeg"), strings.Contains(mime, "jpg"):
		return "jpg"
	case strings.Contains(mime, "gif"):
		return "gif"
	case strings.Contains(mime, "webp"):
		return "webp"
	default:
		return "png"
	}
}
