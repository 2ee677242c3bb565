package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JSON stores free-form JSON documents in the database
type JSON json.RawMessage

// Value implements the driver.Valuer interface
func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return string(j), nil
}

// Scan implements the sql.Scanner interface
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = JSON("{}")
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("invalid scan source")
	}
	*j = JSON(bytes)
	return nil
}

// MarshalJSON implements the json.Marshaler interface
func (j JSON) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (j *JSON) UnmarshalJSON(data []byte) error {
	*j = JSON(data)
	return nil
}

// Image is a media asset referenced by one or more galleries. DeliveryURL is
// the delivery-network locator and may carry a variant suffix; the pristine
// source is derived from it, never stored separately.
type Image struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UUID        string     `gorm:"type:char(36) CHARACTER SET utf8 COLLATE utf8_bin;uniqueIndex;not null" json:"uuid"`
	Title       string     `gorm:"type:varchar(255)" json:"title"`
	FileName    string     `gorm:"type:varchar(255);not null;index" json:"file_name"`
	FileSize    int64      `gorm:"type:bigint" json:"file_size"`
	FileType    string     `gorm:"type:varchar(50)" json:"file_type"`
	Width       int        `gorm:"type:int" json:"width"`
	Height      int        `gorm:"type:int" json:"height"`
	DeliveryURL string     `gorm:"type:varchar(512);not null" json:"delivery_url"`
	CapturedAt  *time.Time `gorm:"index" json:"captured_at,omitempty"`
	Metadata    JSON       `gorm:"type:json" json:"metadata,omitempty"`

	// Activity counters, incremented in Redis and flushed in batches
	PreviewCount int64 `gorm:"not null;default:0" json:"preview_count"`
	CommitCount  int64 `gorm:"not null;default:0" json:"commit_count"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns a UUID if none is set yet
func (i *Image) BeforeCreate(tx *gorm.DB) error {
	if i.UUID == "" {
		i.UUID = uuid.New().String()
	}
	return nil
}

// MetadataMap decodes the Metadata document into a flat string map.
// Non-string values are skipped.
func (i *Image) MetadataMap() map[string]string {
	out := make(map[string]string)
	if len(i.Metadata) == 0 {
		return out
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(i.Metadata, &raw); err != nil {
		return out
	}
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

// FindImageByUUID looks up an image by its public UUID
func FindImageByUUID(db *gorm.DB, imageUUID string) (*Image, error) {
	var image Image
	if err := db.Where("uuid = ?", imageUUID).First(&image).Error; err != nil {
		return nil, err
	}
	return &image, nil
}
