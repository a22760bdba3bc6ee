package backup

import (
	"strings"

	"github.com/frahmantamala/gameserver-admin/internal"
	"github.com/frahmantamala/gameserver-admin/internal/core/common/validation"
)

type CreateBackupDTO struct {
	Notes string `json:"notes"`
}

func (d *CreateBackupDTO) Normalize() {
	d.Notes = strings.TrimSpace(d.Notes)
}

func (d CreateBackupDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("notes", d.Notes).MaxLength(500)
	return v.Validate()
}
