package engine

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/bluelx/janus-console/pkg/apperr"
)

// MaxUploadSize is the hard ceiling for files sent through the gateway's
// base64 upload path. Larger artifacts have to go through the platform's
// bulk channels.
const MaxUploadSize = 5 * 1024 * 1024

// UploadFile base64-encodes a local file and sends it to the platform's
// central object store. Oversized or missing files are rejected before any
// network call; a partial upload is never issued.
func (c *Client) UploadFile(ctx context.Context, localPath, fileName string) (*Response, error) {
	info, err := os.Stat(localPath)
	if err != nil {
		if os.IsNotExist(err) {
			return localError(CodeNotFound, fmt.Sprintf("file not found: %s", localPath)),
				apperr.Wrap(err, apperr.CodeFileMissing, "upload source missing").
					WithContext("path", localPath)
		}
		return localError(CodeRequestFailed, fmt.Sprintf("stat file: %v", err)),
			apperr.Wrap(err, apperr.CodeInternal, "stat upload source")
	}

	if info.Size() > MaxUploadSize {
		msg := fmt.Sprintf("file size %.2fMB exceeds the 5MB limit",
			float64(info.Size())/1024/1024)
		return localError(CodeBadRequest, msg),
			apperr.New(apperr.CodeFileTooLarge, msg).
				WithContext("path", localPath).
				WithContext("size", info.Size())
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return localError(CodeRequestFailed, fmt.Sprintf("read file: %v", err)),
			apperr.Wrap(err, apperr.CodeInternal, "read upload source")
	}

	return c.Invoke(ctx, MethodUploadFile, map[string]any{
		"fileName": fileName,
		"content":  base64.StdEncoding.EncodeToString(data),
	})
}
