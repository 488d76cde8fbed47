package model

import (
	"time"
)

// Account holds the storage ledger of one requester.
type Account struct {
	ID           string    `json:"id" gorm:"primaryKey;type:char(42)"`
	UsedStorage  uint64    `json:"usedStorage" gorm:"type:bigint;not null;default:0"`
	StorageLimit uint64    `json:"storageLimit" gorm:"type:bigint;not null"`
	CDate        time.Time `json:"cdate" gorm:"->;<-:create;autoCreateTime"`
	MDate        time.Time `json:"mdate" gorm:"autoUpdateTime"`
}

// Available returns the bytes left before the limit is reached.
func (a Account) Available() uint64 {
	if a.UsedStorage >= a.StorageLimit {
		return 0
	}
	return a.StorageLimit - a.UsedStorage
}

type Folder struct {
	ID       string    `json:"id" gorm:"primaryKey;type:uuid"`
	OwnerID  string    `json:"ownerId" gorm:"type:char(42);index;not null"`
	Name     string    `json:"name" gorm:"type:text;not null"`
	IsLocked bool      `json:"isLocked" gorm:"not null;default:false"`
	PinHash  *string   `json:"-" gorm:"type:text"`
	CDate    time.Time `json:"cdate" gorm:"->;<-:create;autoCreateTime;index"`
}

type File struct {
	ID         string    `json:"id" gorm:"primaryKey;type:uuid"`
	OwnerID    string    `json:"ownerId" gorm:"type:char(42);index:idx_files_owner_cdate,priority:1;not null"`
	FolderID   *string   `json:"folderId" gorm:"type:uuid;index"`
	Folder     *Folder   `json:"-" gorm:"constraint:OnDelete:RESTRICT"`
	Name       string    `json:"name" gorm:"type:text;not null"`
	BlobKey    string    `json:"-" gorm:"type:text;not null"`
	Size       uint64    `json:"size" gorm:"type:bigint;not null"`
	MimeType   string    `json:"mimeType" gorm:"type:text"`
	IsFavorite bool      `json:"isFavorite" gorm:"not null;default:false"`
	ShareToken *string   `json:"shareToken,omitempty" gorm:"type:text;uniqueIndex"`
	CDate      time.Time `json:"cdate" gorm:"->;<-:create;autoCreateTime;index:idx_files_owner_cdate,priority:2"`
}

// All lists the models for AutoMigrate.
func All() []any {
	return []any{&Account{}, &Folder{}, &File{}}
}
