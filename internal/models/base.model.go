package models

import (
	"time"

	"github.com/google/uuid"
)

// AppendOnlyModel is embedded by tables whose rows are written once and only
// ever removed by retention, so there is no update or soft-delete column.
type AppendOnlyModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;not null"                         json:"createdAt"`
}
