package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Object is the durable catalog record written after a chunked upload has been
// assembled, verified and handed to the blob store. Downstream services (CDN,
// transcoding pipeline) read from this table; the upload engine only inserts.
type Object struct {
	ID          uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey"`
	OwnerID     uuid.UUID         `json:"owner_id" gorm:"type:uuid;not null;index"`
	OriginName  string            `json:"origin_name" gorm:"type:varchar(512);not null"`
	ContentType string            `json:"content_type" gorm:"type:varchar(255)"`
	SizeBytes   int64             `json:"size_bytes" gorm:"not null"`
	FileHash    string            `json:"file_hash" gorm:"type:varchar(255);index"`
	Location    string            `json:"location" gorm:"type:varchar(1024);not null"`
	Metadata    datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt   time.Time         `json:"created_at" gorm:"not null;autoCreateTime"`
	UpdatedAt   time.Time         `json:"updated_at" gorm:"autoUpdateTime"`
}
