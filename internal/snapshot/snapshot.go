// Package snapshot stores parsed reports in the directory layout the
// dashboard reads: the latest snapshot per report type plus an upload
// history.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"loan-report-dashboard/internal/models"
	"loan-report-dashboard/internal/parsers"
	"loan-report-dashboard/pkg/errors"
	"loan-report-dashboard/pkg/logger"
)

const (
	historyDir       = "history"
	historyIndexFile = "history_index.json"

	// DefaultMaxHistory caps the number of index entries kept.
	DefaultMaxHistory = 100
)

// Metadata describes the latest snapshot of one report type.
type Metadata struct {
	Filename   string            `json:"filename"`
	UploadDate time.Time         `json:"uploadDate"`
	FileSize   int64             `json:"fileSize"`
	MonthInfo  *models.MonthInfo `json:"monthInfo"`
}

// UploadMeta describes one upload in the history directory.
type UploadMeta struct {
	UploadID      string                       `json:"uploadId"`
	UploadDate    time.Time                    `json:"uploadDate"`
	MonthInfo     *models.MonthInfo            `json:"monthInfo"`
	Files         map[models.ReportType]string `json:"files"`
	ParsedSheets  []string                     `json:"parsedSheets"`
	MissingSheets []string                     `json:"missingSheets"`
}

// IndexEntry is one line of history_index.json.
type IndexEntry struct {
	UploadID     string            `json:"uploadId"`
	UploadDate   time.Time         `json:"uploadDate"`
	MonthInfo    *models.MonthInfo `json:"monthInfo"`
	ParsedSheets []string          `json:"parsedSheets"`
}

// Upload is a parsed input file ready to be stored.
type Upload struct {
	Filename string
	FileSize int64
	Result   *parsers.WorkbookResult
}

// Writer writes snapshots below a root directory.
type Writer struct {
	dir        string
	locker     Locker
	maxHistory int
	now        func() time.Time
	newID      func() string
	logger     logger.Logger
}

// Option customizes a Writer.
type Option func(*Writer)

// WithLocker replaces the in-process locker.
func WithLocker(l Locker) Option {
	return func(w *Writer) { w.locker = l }
}

// WithMaxHistory changes the history index cap.
func WithMaxHistory(n int) Option {
	return func(w *Writer) {
		if n > 0 {
			w.maxHistory = n
		}
	}
}

// WithClock sets the source of upload timestamps.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) { w.now = now }
}

// WithIDGenerator sets the upload ID generator.
func WithIDGenerator(gen func() string) Option {
	return func(w *Writer) { w.newID = gen }
}

// NewWriter creates a writer for dir. The directory is created on first
// write.
func NewWriter(dir string, opts ...Option) *Writer {
	w := &Writer{
		dir:        dir,
		locker:     &LocalLocker{},
		maxHistory: DefaultMaxHistory,
		now:        time.Now,
		newID:      uuid.NewString,
		logger:     logger.WithComponent("snapshot"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Dir returns the root directory.
func (w *Writer) Dir() string { return w.dir }

// Write stores every report of the upload as the latest snapshot of its
// type, copies it into the history, and prepends the upload to the history
// index.
func (w *Writer) Write(ctx context.Context, upload Upload) (*UploadMeta, error) {
	if upload.Result == nil || len(upload.Result.Reports) == 0 {
		return nil, errors.WorkbookError(errors.CodeNoSheets, upload.Filename, nil)
	}
	if err := os.MkdirAll(filepath.Join(w.dir, historyDir), 0o755); err != nil {
		return nil, errors.FileError(errors.CodeDirectoryError, w.dir, err)
	}

	uploadDate := w.now().UTC()
	meta := &UploadMeta{
		UploadID:      w.newID(),
		UploadDate:    uploadDate,
		MonthInfo:     upload.Result.MonthInfo,
		Files:         make(map[models.ReportType]string, len(upload.Result.Reports)),
		ParsedSheets:  upload.Result.ParsedSheets,
		MissingSheets: upload.Result.MissingSheets,
	}

	for _, t := range models.AllReportTypes {
		report, ok := upload.Result.Reports[t]
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, errors.StorageError(errors.CodeSnapshotWrite, string(t), err)
		}

		// Metadata carries the upload's month info, shared by every type.
		info := upload.Result.MonthInfo
		if info == nil {
			info = &report.MonthInfo
		}
		files := []struct {
			path  string
			value interface{}
		}{
			{w.latestPath(t), report},
			{filepath.Join(w.dir, fmt.Sprintf("%s_metadata.json", t)), Metadata{
				Filename:   upload.Filename,
				UploadDate: uploadDate,
				FileSize:   upload.FileSize,
				MonthInfo:  info,
			}},
			{filepath.Join(w.dir, historyDir, fmt.Sprintf("%s_%s.json", meta.UploadID, t)), report},
		}
		for _, f := range files {
			if err := writeJSON(f.path, f.value); err != nil {
				return nil, err
			}
		}
		meta.Files[t] = upload.Filename
	}

	metaPath := filepath.Join(w.dir, historyDir, fmt.Sprintf("%s_meta.json", meta.UploadID))
	if err := writeJSON(metaPath, meta); err != nil {
		return nil, err
	}

	if err := w.updateIndex(ctx, meta); err != nil {
		return nil, err
	}

	w.logger.WithFields(logger.Fields{
		"upload_id": meta.UploadID,
		"dir":       w.dir,
		"reports":   len(meta.Files),
	}).Info("Wrote snapshot")

	return meta, nil
}

func (w *Writer) updateIndex(ctx context.Context, meta *UploadMeta) error {
	unlock, err := w.locker.Lock(ctx, HistoryLockKey)
	if err != nil {
		return err
	}
	defer unlock()

	entries, err := History(w.dir)
	if err != nil {
		return err
	}

	entries = append([]IndexEntry{{
		UploadID:     meta.UploadID,
		UploadDate:   meta.UploadDate,
		MonthInfo:    meta.MonthInfo,
		ParsedSheets: meta.ParsedSheets,
	}}, entries...)
	if len(entries) > w.maxHistory {
		entries = entries[:w.maxHistory]
	}

	if err := writeJSON(filepath.Join(w.dir, historyIndexFile), entries); err != nil {
		return errors.StorageError(errors.CodeHistoryIndex, historyIndexFile, err)
	}
	return nil
}

func (w *Writer) latestPath(t models.ReportType) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s_parsed.json", t))
}

// History reads the history index of dir, newest first. A missing index is
// an empty history.
func History(dir string) ([]IndexEntry, error) {
	path := filepath.Join(dir, historyIndexFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return []IndexEntry{}, nil
	}
	if err != nil {
		return nil, errors.StorageError(errors.CodeHistoryIndex, path, err)
	}

	var entries []IndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.StorageError(errors.CodeHistoryIndex, path, err)
	}
	return entries, nil
}

// Latest loads the latest snapshot of a report type from dir.
func Latest(dir string, t models.ReportType) (*models.Report, error) {
	path := filepath.Join(dir, fmt.Sprintf("%s_parsed.json", t))
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.FileError(errors.CodeFileNotFound, path, err)
	}
	if err != nil {
		return nil, errors.FileError(errors.CodeFilePermission, path, err)
	}

	var report models.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, errors.StorageError(errors.CodeSnapshotRead, path, err)
	}
	return &report, nil
}

// writeJSON writes value to path through a temporary file so readers never
// see a partial snapshot.
func writeJSON(path string, value interface{}) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errors.InternalError(errors.CodeUnexpectedError, "encode snapshot", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*.json")
	if err != nil {
		return errors.StorageError(errors.CodeSnapshotWrite, path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.StorageError(errors.CodeSnapshotWrite, path, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.StorageError(errors.CodeSnapshotWrite, path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.StorageError(errors.CodeSnapshotWrite, path, err)
	}
	return nil
}
