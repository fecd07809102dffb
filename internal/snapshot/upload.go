package snapshot

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/vk/catwalk/internal/ctxlog"
)

// uploadClient is shared across uploads to reuse TCP connections.
var uploadClient = &http.Client{}

// Upload pushes a stored snapshot's raw file to the remote archive with an
// HTTP PUT. The base URL typically points at a pre-signed object-store
// endpoint; the snapshot path is appended to it.
func Upload(ctx context.Context, snap *Snapshot, baseURL string) error {
	logger := ctxlog.FromContext(ctx).With("snapshot", snap.ID.String())

	if baseURL == "" {
		return fmt.Errorf("upload url is not configured")
	}
	target, err := url.JoinPath(baseURL, snap.ID.Path())
	if err != nil {
		return fmt.Errorf("building upload url: %w", err)
	}

	file, err := os.Open(snap.path)
	if err != nil {
		return fmt.Errorf("opening snapshot file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat snapshot file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, file)
	if err != nil {
		return fmt.Errorf("building upload request: %w", err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(snap.path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = stat.Size()

	logger.Info("Uploading snapshot", "size", stat.Size(), "contentType", contentType)

	resp, err := uploadClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("upload failed with status: %s", resp.Status)
	}

	logger.Info("✅ Snapshot uploaded", "status", resp.Status)
	return nil
}
