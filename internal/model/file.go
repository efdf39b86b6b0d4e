package model

import "time"

// FileRecord is the metadata row written after a blob has been stored.
// StorageKey locates the blob and never changes once written. OwnerID is a
// plain reference to User.ID; the store does not enforce it.
type FileRecord struct {
	ID               string
	Title            string
	Description      string
	OwnerID          string
	CreatedAt        time.Time
	StorageKey       string
	OriginalFilename string
	Size             int64
	FileType         string
}
