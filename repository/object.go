package repository

import (
	"errors"

	"github.com/google/uuid"
	"github.com/vidstream/upload-service/entity"
	"gorm.io/gorm"
)

type ObjectRepository struct {
	db *gorm.DB
}

func NewObjectRepository(db *gorm.DB) *ObjectRepository {
	return &ObjectRepository{db: db}
}

func (r *ObjectRepository) Create(object *entity.Object) error {
	return r.db.Create(object).Error
}

// FindByOwnerAndHash returns (nil, nil) when the owner has no entry for the
// hash, so callers can tell "absent" apart from a database failure.
func (r *ObjectRepository) FindByOwnerAndHash(ownerID uuid.UUID, fileHash string) (*entity.Object, error) {
	var object entity.Object
	err := r.db.Where("owner_id = ? AND file_hash = ?", ownerID, fileHash).First(&object).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &object, nil
}
