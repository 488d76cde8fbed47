package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/totegamma/mediastore/internal/apperr"
	"github.com/totegamma/mediastore/internal/logger"
	"github.com/totegamma/mediastore/internal/model"
)

type UploadInput struct {
	FolderID *string
	Name     string
	MimeType string
	Body     io.Reader
}

type uploadStage int

const (
	stageReceived uploadStage = iota
	stageQuotaChecked
	stageBlobWritten
	stageRecordPersisted
	stageLedgerUpdated
	stageComplete
)

func (s uploadStage) String() string {
	switch s {
	case stageReceived:
		return "received"
	case stageQuotaChecked:
		return "quota_checked"
	case stageBlobWritten:
		return "blob_written"
	case stageRecordPersisted:
		return "record_persisted"
	case stageLedgerUpdated:
		return "ledger_updated"
	case stageComplete:
		return "complete"
	}
	return "unknown"
}

// upload tracks one upload through its stages and undoes finished stages when
// a later one fails.
type upload struct {
	svc     *Service
	ownerID string
	stage   uploadStage
	size    uint64
	key     string
	log     *logrus.Entry
}

// Upload stores a new file for ownerID.
//
// Space is reserved atomically before any byte is written, so concurrent
// uploads can never commit more than the limit together. A failed blob write
// returns the reservation; a failed record insert also removes the blob. The
// body is never read further than the account's free space.
func (s *Service) Upload(ctx context.Context, ownerID string, in UploadInput) (model.File, error) {
	u := &upload{
		svc:     s,
		ownerID: ownerID,
		log:     logger.WithField("owner", ownerID),
	}
	f, err := u.run(ctx, in)
	s.metrics.observe("upload", err)
	if err != nil {
		u.log.WithError(err).WithField("stage", u.stage).Debug("upload failed")
		return model.File{}, err
	}
	s.metrics.stored(f.Size)
	return f, nil
}

func (u *upload) run(ctx context.Context, in UploadInput) (model.File, error) {
	s := u.svc

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.File{}, apperr.Invalid("file name is required")
	}
	contentType := mediaType(in.MimeType)
	if !AllowedMimeType(contentType) {
		return model.File{}, apperr.Invalid("file type %q is not allowed; only images, PDFs and docs are", in.MimeType)
	}
	if in.Body == nil {
		return model.File{}, apperr.Invalid("no file uploaded")
	}
	if in.FolderID != nil {
		if _, err := s.folders.Get(ctx, u.ownerID, *in.FolderID); err != nil {
			return model.File{}, err
		}
	}

	account, err := s.ledger.Ensure(ctx, u.ownerID)
	if err != nil {
		return model.File{}, err
	}
	// Read at most one byte past the free space; anything longer cannot fit.
	free := account.Available()
	buf, err := io.ReadAll(io.LimitReader(in.Body, readLimit(free)))
	if err != nil {
		return model.File{}, apperr.Wrap(apperr.ErrIO, fmt.Errorf("read upload: %w", err))
	}
	if uint64(len(buf)) > free {
		return model.File{}, fmt.Errorf("upload larger than the %d bytes left: %w", free, apperr.ErrInsufficientSpace)
	}
	reader := bytes.NewReader(buf)
	if contentType == "image/jpeg" {
		reader, err = stripExif(reader)
		if err != nil {
			return model.File{}, apperr.Wrap(apperr.ErrInvalidInput, err)
		}
	}
	u.size = uint64(reader.Size())

	if err := s.ledger.TryReserve(ctx, u.ownerID, u.size); err != nil {
		return model.File{}, err
	}
	u.stage = stageQuotaChecked

	u.key, err = s.blobs.Write(ctx, u.ownerID, name, reader, int64(u.size), contentType)
	if err != nil {
		u.rollback(ctx)
		return model.File{}, apperr.Wrap(apperr.ErrIO, err)
	}
	u.stage = stageBlobWritten

	f, err := s.files.Create(ctx, model.File{
		OwnerID:  u.ownerID,
		FolderID: in.FolderID,
		Name:     name,
		BlobKey:  u.key,
		Size:     u.size,
		MimeType: contentType,
	})
	if err != nil {
		u.rollback(ctx)
		return model.File{}, err
	}
	u.stage = stageRecordPersisted

	// The reservation taken at quota check is the ledger update.
	u.stage = stageLedgerUpdated

	u.log.WithFields(logrus.Fields{"file": f.ID, "size": f.Size}).Info("uploaded file")
	u.stage = stageComplete
	return f, nil
}

// rollback undoes the stages reached so far, newest first.
func (u *upload) rollback(ctx context.Context) {
	s := u.svc
	if u.stage >= stageBlobWritten {
		if err := s.blobs.Delete(ctx, u.key); err != nil {
			u.log.WithError(err).WithField("key", u.key).Warn("failed to remove blob of failed upload")
		}
	}
	if u.stage >= stageQuotaChecked {
		if err := s.ledger.Release(ctx, u.ownerID, u.size); err != nil {
			u.log.WithError(err).Error("failed to release reservation of failed upload")
		}
	}
}

func readLimit(free uint64) int64 {
	if free >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(free) + 1
}
