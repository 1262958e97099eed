package repository

import (
	"time"

	"gorm.io/gorm"
)

type Repository struct {
	SessionRepo *SessionRepository
	ChunkRepo   *ChunkRepository
	ObjectRepo  *ObjectRepository
}

var repository *Repository

// InitRepository wires the repositories over the session store and the catalog
// database. sessionTTL is the shared expiry horizon for session and chunk keys.
func InitRepository(store Store, db *gorm.DB, sessionTTL time.Duration) *Repository {
	repository = &Repository{
		SessionRepo: NewSessionRepository(store, sessionTTL),
		ChunkRepo:   NewChunkRepository(store, sessionTTL),
		ObjectRepo:  NewObjectRepository(db),
	}
	return repository
}

func GetRepository() *Repository {
	if repository == nil {
		panic("repository not initialized")
	}
	return repository
}
