package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pkpgroup/matdash/internal/entity"
	"github.com/pkpgroup/matdash/internal/repository"
	"github.com/pkpgroup/matdash/internal/shared/n8nflow"
	"github.com/pkpgroup/matdash/internal/shared/pdftext"
	"go.uber.org/zap"
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// UploadOptions tie an uploaded document to the record it belongs to.
type UploadOptions struct {
	FileType        string
	DocumentContext string
	MaterialID      *uint
	PurchaseOrderID *uint
	PaymentID       *uint
	DeliveryID      *uint
	UploadedBy      string
}

// UploadResult reports the stored file plus whether the extraction workflow
// accepted the trigger.
type UploadResult struct {
	File         *entity.File `json:"file"`
	N8NTriggered bool         `json:"n8n_triggered"`
}

// UploadService stores incoming documents under the upload directory and
// fires the extraction workflow for them.
type UploadService struct {
	repo       *repository.FileRepository
	flow       *n8nflow.Client
	logger     *zap.Logger
	baseDir    string
	maxSize    int64
	allowedExt map[string]struct{}
}

func NewUploadService(repo *repository.FileRepository, flow *n8nflow.Client, logger *zap.Logger, baseDir string, maxSize int64, allowedExt []string) *UploadService {
	if baseDir == "" {
		baseDir = "static/uploads"
	}
	if maxSize <= 0 {
		maxSize = 10 << 20
	}
	if len(allowedExt) == 0 {
		allowedExt = []string{"pdf", "png", "jpg", "jpeg", "doc", "docx", "xls", "xlsx"}
	}
	extSet := make(map[string]struct{}, len(allowedExt))
	for _, e := range allowedExt {
		extSet[strings.ToLower(strings.TrimPrefix(e, "."))] = struct{}{}
	}
	return &UploadService{
		repo:       repo,
		flow:       flow,
		logger:     logger,
		baseDir:    baseDir,
		maxSize:    maxSize,
		allowedExt: extSet,
	}
}

// Save writes the upload to <baseDir>/YYYY/MM/<timestamp>_<safe name>,
// records it and triggers extraction. The trigger is best effort.
func (s *UploadService) Save(ctx context.Context, header *multipart.FileHeader, opts UploadOptions) (*UploadResult, error) {
	if header.Size > s.maxSize {
		return nil, fmt.Errorf("file too large: %d bytes, limit %d", header.Size, s.maxSize)
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(header.Filename), "."))
	if _, ok := s.allowedExt[ext]; !ok {
		return nil, fmt.Errorf("file type .%s is not allowed", ext)
	}

	fileType := opts.FileType
	if fileType == "" {
		fileType = entity.FileTypeOther
	}
	if !entity.IsValidFileType(fileType) {
		return nil, fmt.Errorf("invalid file type %q", fileType)
	}

	now := time.Now()
	dir := filepath.Join(s.baseDir, now.Format("2006"), now.Format("01"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	safeName := unsafeFilenameChars.ReplaceAllString(filepath.Base(header.Filename), "_")
	storedName := fmt.Sprintf("%d_%s", now.UnixNano(), safeName)
	dstPath := filepath.Join(dir, storedName)

	src, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", dstPath, err)
	}
	written, err := io.Copy(dst, io.LimitReader(src, s.maxSize+1))
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(dstPath)
		return nil, fmt.Errorf("store upload: %w", err)
	}
	if written > s.maxSize {
		os.Remove(dstPath)
		return nil, fmt.Errorf("file too large: limit %d bytes", s.maxSize)
	}

	f := &entity.File{
		Filename:         storedName,
		OriginalFilename: header.Filename,
		FilePath:         dstPath,
		FileType:         fileType,
		FileSize:         written,
		MimeType:         header.Header.Get("Content-Type"),
		ProcessingStatus: entity.FileUploaded,
		MaterialID:       opts.MaterialID,
		PurchaseOrderID:  opts.PurchaseOrderID,
		PaymentID:        opts.PaymentID,
		DeliveryID:       opts.DeliveryID,
		UploadedBy:       opts.UploadedBy,
		UploadedAt:       now,
	}
	if err := s.repo.Create(ctx, f); err != nil {
		os.Remove(dstPath)
		return nil, err
	}

	var docText string
	var numPages int
	if ext == "pdf" {
		if ex, exErr := pdftext.Extract(ctx, dstPath); exErr != nil {
			s.logger.Warn("local pdf text extraction failed",
				zap.Uint("id", f.ID),
				zap.Error(exErr))
		} else {
			docText = ex.Text
			numPages = ex.NumPages
		}
	}

	triggered := false
	if s.flow != nil {
		triggered = s.flow.TriggerExtraction(ctx, &n8nflow.ExtractionRequest{
			FileID:          f.ID,
			FilePath:        f.FilePath,
			FileType:        f.FileType,
			DocumentContext: opts.DocumentContext,
			DocumentText:    docText,
			NumPages:        numPages,
			MaterialID:      derefUint(opts.MaterialID),
			PurchaseOrderID: derefUint(opts.PurchaseOrderID),
			PaymentID:       derefUint(opts.PaymentID),
			DeliveryID:      derefUint(opts.DeliveryID),
		})
		if triggered {
			if err := s.repo.MarkProcessing(ctx, f.ID); err == nil {
				f.ProcessingStatus = entity.FileProcessing
			}
		}
	}

	s.logger.Info("file uploaded",
		zap.Uint("id", f.ID),
		zap.String("file_type", f.FileType),
		zap.Int64("size", f.FileSize),
		zap.Bool("n8n_triggered", triggered))

	return &UploadResult{File: f, N8NTriggered: triggered}, nil
}

func (s *UploadService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.File, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

func (s *UploadService) Get(ctx context.Context, id uint) (*entity.File, error) {
	return s.repo.FindByID(ctx, id)
}

// UpdateStatus is called by the workflow when it finishes (or fails) a file.
func (s *UploadService) UpdateStatus(ctx context.Context, id uint, status string, data entity.JSONMap, confidence float64, errMsg string) (*entity.File, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, err
	}

	var err error
	switch status {
	case entity.FileProcessing:
		err = s.repo.MarkProcessing(ctx, id)
	case entity.FileCompleted:
		err = s.repo.MarkCompleted(ctx, id, data, confidence)
	case entity.FileFailed:
		err = s.repo.MarkFailed(ctx, id, errMsg)
	default:
		return nil, fmt.Errorf("invalid processing status %q", status)
	}
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

// Delete removes the record and the stored file. A missing file on disk is
// not an error.
func (s *UploadService) Delete(ctx context.Context, id uint) error {
	f, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if rmErr := os.Remove(f.FilePath); rmErr != nil && !os.IsNotExist(rmErr) {
		s.logger.Warn("stored file not removed",
			zap.String("path", f.FilePath),
			zap.Error(rmErr))
	}
	return nil
}

func derefUint(p *uint) uint {
	if p == nil {
		return 0
	}
	return *p
}
