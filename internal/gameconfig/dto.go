package gameconfig

import (
	"strings"

	"github.com/frahmantamala/gameserver-admin/internal"
)

type SaveConfigDTO struct {
	Config string `json:"config"`
}

func (d SaveConfigDTO) Validate() *internal.AppError {
	if strings.TrimSpace(d.Config) == "" {
		return internal.NewValidationFieldError("config", "Config required", internal.ErrCodeValidationFailed)
	}
	return nil
}
