// Package storage is the operation surface for folders, files, quotas and
// share links. It composes the ledger, the registries and the blob store and
// owns the ordering and compensation of multi-step operations.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/totegamma/mediastore/internal/apperr"
	"github.com/totegamma/mediastore/internal/blob"
	"github.com/totegamma/mediastore/internal/file"
	"github.com/totegamma/mediastore/internal/folder"
	"github.com/totegamma/mediastore/internal/ledger"
	"github.com/totegamma/mediastore/internal/logger"
	"github.com/totegamma/mediastore/internal/model"
	"github.com/totegamma/mediastore/internal/share"
)

// cascadeRounds bounds how often DeleteFolder re-enumerates a folder that keeps
// receiving files while it is being emptied.
const cascadeRounds = 3

type Service struct {
	ledger  *ledger.Ledger
	folders *folder.Registry
	files   *file.Registry
	shares  *share.Service
	blobs   blob.Store
	metrics *Metrics
}

func New(l *ledger.Ledger, folders *folder.Registry, files *file.Registry, shares *share.Service, blobs blob.Store, metrics *Metrics) *Service {
	return &Service{
		ledger:  l,
		folders: folders,
		files:   files,
		shares:  shares,
		blobs:   blobs,
		metrics: metrics,
	}
}

// ShareLink is an issued share token and its public URL.
type ShareLink struct {
	Token string `json:"token"`
	URL   string `json:"shareUrl"`
}

// Account returns the caller's ledger, creating it on first contact.
func (s *Service) Account(ctx context.Context, ownerID string) (model.Account, error) {
	return s.ledger.Ensure(ctx, ownerID)
}

func (s *Service) CreateFolder(ctx context.Context, ownerID, name, pin string) (model.Folder, error) {
	f, err := s.folders.Create(ctx, ownerID, name, pin)
	s.metrics.observe("create_folder", err)
	return f, err
}

// UnlockFolder checks pin against a locked folder.
func (s *Service) UnlockFolder(ctx context.Context, ownerID, folderID, pin string) (bool, error) {
	return s.folders.VerifyPin(ctx, ownerID, folderID, pin)
}

// Download opens one of the caller's files.
func (s *Service) Download(ctx context.Context, ownerID, fileID string) (*file.Content, error) {
	f, err := s.files.Get(ctx, ownerID, fileID)
	if err != nil {
		return nil, err
	}
	return s.files.Open(ctx, f)
}

// OpenShared opens the file behind a share token. No identity is required.
func (s *Service) OpenShared(ctx context.Context, token string) (*file.Content, error) {
	f, err := s.shares.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.files.Open(ctx, f)
}

func (s *Service) Duplicate(ctx context.Context, ownerID, fileID string) (model.File, error) {
	f, err := s.files.Duplicate(ctx, ownerID, fileID)
	s.metrics.observe("duplicate", err)
	if err == nil {
		s.metrics.stored(f.Size)
	}
	return f, err
}

// Copy copies a file into targetFolderID, or next to the source when nil.
func (s *Service) Copy(ctx context.Context, ownerID, fileID string, targetFolderID *string) (model.File, error) {
	f, err := s.files.CopyTo(ctx, ownerID, fileID, targetFolderID)
	s.metrics.observe("copy", err)
	if err == nil {
		s.metrics.stored(f.Size)
	}
	return f, err
}

func (s *Service) Rename(ctx context.Context, ownerID, fileID, newName string) (model.File, error) {
	f, err := s.files.Rename(ctx, ownerID, fileID, newName)
	s.metrics.observe("rename", err)
	return f, err
}

func (s *Service) ToggleFavorite(ctx context.Context, ownerID, fileID string) (model.File, error) {
	f, err := s.files.ToggleFavorite(ctx, ownerID, fileID)
	s.metrics.observe("favorite", err)
	return f, err
}

func (s *Service) Delete(ctx context.Context, ownerID, fileID string) error {
	f, err := s.files.Delete(ctx, ownerID, fileID)
	s.metrics.observe("delete", err)
	if err == nil {
		s.metrics.released(f.Size)
	}
	return err
}

// Share returns the file's share link, issuing a token on first use.
func (s *Service) Share(ctx context.Context, ownerID, fileID string) (ShareLink, error) {
	token, err := s.shares.GetOrCreateShareToken(ctx, ownerID, fileID)
	s.metrics.observe("share", err)
	if err != nil {
		return ShareLink{}, err
	}
	return ShareLink{Token: token, URL: s.shares.URL(token)}, nil
}

// DeleteFolder deletes every file in the folder through the file delete path
// and then the folder itself.
//
// A file whose blob cannot be removed is still deleted. A failure to remove a
// record stops the cascade and leaves the folder and its remaining files.
func (s *Service) DeleteFolder(ctx context.Context, ownerID, folderID string) error {
	err := s.deleteFolder(ctx, ownerID, folderID)
	s.metrics.observe("delete_folder", err)
	return err
}

func (s *Service) deleteFolder(ctx context.Context, ownerID, folderID string) error {
	f, err := s.folders.Get(ctx, ownerID, folderID)
	if err != nil {
		return err
	}

	for round := 0; round < cascadeRounds; round++ {
		// Phase one: empty the folder.
		members, err := s.files.ListByFolder(ctx, ownerID, f.ID)
		if err != nil {
			return err
		}
		for _, member := range members {
			deleted, err := s.files.Delete(ctx, ownerID, member.ID)
			if errors.Is(err, apperr.ErrNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("delete folder %s: file %s: %w", f.ID, member.ID, err)
			}
			s.metrics.released(deleted.Size)
		}

		// Phase two: drop the folder unless something landed in it meanwhile.
		err = s.folders.Delete(ctx, ownerID, f.ID)
		if !errors.Is(err, apperr.ErrConflict) {
			return err
		}
		logger.WithField("folder", f.ID).Info("folder received files during delete, retrying")
	}
	return fmt.Errorf("delete folder %s: %w", f.ID, apperr.ErrConflict)
}
