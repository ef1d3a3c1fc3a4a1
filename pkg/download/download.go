package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	apperr "github.com/kdeps/mediacmd/pkg/errors"
	"github.com/kdeps/mediacmd/pkg/logging"
	"github.com/kdeps/mediacmd/pkg/messages"
)

// progressStep is how many bytes pass between two progress log lines.
const progressStep = 1 << 20

// WriteCounter tracks the total number of bytes written and logs download progress.
type WriteCounter struct {
	Total       uint64
	DownloadURL string
	Logger      *logging.Logger

	lastLogged uint64
}

// Write implements the io.Writer interface and updates the total byte count.
func (wc *WriteCounter) Write(p []byte) (int, error) {
	n := len(p)
	wc.Total += uint64(n)
	if wc.Total-wc.lastLogged >= progressStep {
		wc.lastLogged = wc.Total
		wc.PrintProgress()
	}
	return n, nil
}

// PrintProgress logs the download progress.
func (wc *WriteCounter) PrintProgress() {
	if wc.Logger == nil {
		return
	}
	wc.Logger.Debug(messages.MsgDownloadProgress, "url", wc.DownloadURL, "received", humanize.Bytes(wc.Total))
}

// Result describes a completed download.
type Result struct {
	Path        string
	Bytes       int64
	ContentType string
}

// DownloadFile streams url into filePath. The body is written to filePath.tmp
// and renamed once complete, so filePath never holds a partial download.
// Network and HTTP status failures are acquisition errors; local filesystem
// failures are storage errors. The temporary file is removed on failure.
func DownloadFile(ctx context.Context, fs afero.Fs, client *http.Client, url, filePath string, logger *logging.Logger) (*Result, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = logging.GetLogger()
	}
	oplog := logging.NewOperationLogger(logger).WithField("url", url)
	start := time.Now()

	logger.Debug(messages.MsgStartingFileDownload, "url", url, "destination", filePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperr.NewAcquisitionError(url, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		oplog.LogHTTPRequest(http.MethodGet, url, 0, time.Since(start), err)
		return nil, apperr.NewAcquisitionError(url, err)
	}
	defer resp.Body.Close()

	oplog.LogHTTPRequest(http.MethodGet, url, resp.StatusCode, time.Since(start), nil)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.NewAcquisitionError(url, fmt.Errorf("unexpected status code %d", resp.StatusCode)).
			WithContext("status", resp.StatusCode)
	}

	tmpFilePath := filePath + ".tmp"
	out, err := fs.Create(tmpFilePath)
	if err != nil {
		return nil, apperr.NewStorageError("create temporary file", tmpFilePath, err)
	}

	counter := &WriteCounter{DownloadURL: url, Logger: logger}
	written, copyErr := io.Copy(out, io.TeeReader(resp.Body, counter))
	closeErr := out.Close()
	if copyErr != nil {
		_ = fs.Remove(tmpFilePath)
		return nil, apperr.NewAcquisitionError(url, copyErr)
	}
	if closeErr != nil {
		_ = fs.Remove(tmpFilePath)
		return nil, apperr.NewStorageError("close temporary file", tmpFilePath, closeErr)
	}

	if err := fs.Rename(tmpFilePath, filePath); err != nil {
		_ = fs.Remove(tmpFilePath)
		return nil, apperr.NewStorageError("rename temporary file", filePath, err)
	}

	logger.Info(messages.MsgDownloadComplete, "url", url, "path", filePath, "size", humanize.Bytes(uint64(written)))

	return &Result{
		Path:        filePath,
		Bytes:       written,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}
