package storage

import (
	"context"
	"time"

	"github.com/totegamma/mediastore/internal/apperr"
	"github.com/totegamma/mediastore/internal/model"
)

const (
	defaultRecentLimit = 10
	maxRecentLimit     = 100
	dayLayout          = "2006-01-02"
)

type FolderSummary struct {
	FolderID   string `json:"folderId"`
	FolderName string `json:"folderName"`
	IsLocked   bool   `json:"isLocked"`
	TotalItems int    `json:"totalItems"`
	TotalSize  uint64 `json:"totalSize"`
}

// Dashboard summarizes an account. UsedStorage comes from the ledger; TotalSize
// is the sum over the listed files and only agrees with it when no mutation is
// in flight.
type Dashboard struct {
	FolderStats  []FolderSummary `json:"folderStats"`
	TotalFiles   int             `json:"totalFiles"`
	TotalSize    uint64          `json:"totalSize"`
	UsedStorage  uint64          `json:"usedStorage"`
	StorageLimit uint64          `json:"storageLimit"`
}

type FolderStats struct {
	Folder     model.Folder `json:"folder"`
	TotalItems int          `json:"totalItems"`
	TotalSize  uint64       `json:"totalSize"`
	Files      []model.File `json:"files"`
}

func (s *Service) GetDashboard(ctx context.Context, ownerID string) (Dashboard, error) {
	account, err := s.ledger.Ensure(ctx, ownerID)
	if err != nil {
		return Dashboard{}, err
	}
	folders, err := s.folders.List(ctx, ownerID)
	if err != nil {
		return Dashboard{}, err
	}
	files, err := s.files.ListByOwner(ctx, ownerID)
	if err != nil {
		return Dashboard{}, err
	}

	type tally struct {
		items int
		size  uint64
	}
	perFolder := make(map[string]*tally, len(folders))
	for _, f := range folders {
		perFolder[f.ID] = &tally{}
	}

	d := Dashboard{
		FolderStats:  make([]FolderSummary, 0, len(folders)),
		TotalFiles:   len(files),
		UsedStorage:  account.UsedStorage,
		StorageLimit: account.StorageLimit,
	}
	for _, f := range files {
		d.TotalSize += f.Size
		if f.FolderID == nil {
			continue
		}
		if t, ok := perFolder[*f.FolderID]; ok {
			t.items++
			t.size += f.Size
		}
	}
	for _, f := range folders {
		t := perFolder[f.ID]
		d.FolderStats = append(d.FolderStats, FolderSummary{
			FolderID:   f.ID,
			FolderName: f.Name,
			IsLocked:   f.IsLocked,
			TotalItems: t.items,
			TotalSize:  t.size,
		})
	}
	return d, nil
}

func (s *Service) GetFolderStats(ctx context.Context, ownerID, folderID string) (FolderStats, error) {
	f, err := s.folders.Get(ctx, ownerID, folderID)
	if err != nil {
		return FolderStats{}, err
	}
	files, err := s.files.ListByFolder(ctx, ownerID, f.ID)
	if err != nil {
		return FolderStats{}, err
	}

	stats := FolderStats{Folder: f, TotalItems: len(files), Files: files}
	for _, file := range files {
		stats.TotalSize += file.Size
	}
	return stats, nil
}

// GetRecentFiles returns the newest files. limit defaults to 10 and is capped at 100.
func (s *Service) GetRecentFiles(ctx context.Context, ownerID string, limit int) ([]model.File, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	return s.files.Recent(ctx, ownerID, limit)
}

// GetFilesByDate returns the files created on day (YYYY-MM-DD, UTC), newest first.
func (s *Service) GetFilesByDate(ctx context.Context, ownerID, day string) ([]model.File, error) {
	if day == "" {
		return nil, apperr.Invalid("date is required")
	}
	start, err := time.ParseInLocation(dayLayout, day, time.UTC)
	if err != nil {
		return nil, apperr.Invalid("date %q: want YYYY-MM-DD", day)
	}
	return s.files.CreatedBetween(ctx, ownerID, start, start.AddDate(0, 0, 1))
}
