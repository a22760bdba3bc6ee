package user

import (
	"strings"

	"github.com/frahmantamala/gameserver-admin/internal"
	"github.com/frahmantamala/gameserver-admin/internal/core/common/validation"
)

type CreateOperatorDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
}

func (d *CreateOperatorDTO) Normalize() {
	d.Username = strings.TrimSpace(d.Username)
	d.Email = strings.TrimSpace(d.Email)
	d.Role = strings.ToLower(strings.TrimSpace(d.Role))
}

func (d CreateOperatorDTO) Validate() *internal.AppError {
	return validation.ValidateCredentials(d.Username, d.Password)
}

// UpdateOperatorDTO carries only the fields present in the request.
type UpdateOperatorDTO struct {
	Email    *string `json:"email,omitempty"`
	Role     *string `json:"role,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
	Password *string `json:"password,omitempty"`
}

func (d UpdateOperatorDTO) Empty() bool {
	return d.Email == nil && d.Role == nil && d.IsActive == nil && d.Password == nil
}

func (d UpdateOperatorDTO) Validate() *internal.AppError {
	if d.Empty() {
		return internal.NewValidationError("No updates provided", internal.ErrCodeValidationFailed)
	}
	if d.Password != nil {
		return validation.ValidatePassword("password", *d.Password)
	}
	return nil
}

type RegisterDTO struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	Email      string `json:"email,omitempty"`
	InviteCode string `json:"invite_code"`
}

func (d *RegisterDTO) Normalize() {
	d.Username = strings.TrimSpace(d.Username)
	d.Email = strings.TrimSpace(d.Email)
	d.InviteCode = strings.TrimSpace(d.InviteCode)
}

func (d RegisterDTO) Validate() *internal.AppError {
	if err := validation.ValidateCredentials(d.Username, d.Password); err != nil {
		return err
	}
	v := validation.NewValidator()
	v.Field("invite_code", d.InviteCode).Required()
	return v.Validate()
}

type ChangePasswordDTO struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (d ChangePasswordDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("current_password", d.CurrentPassword).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return validation.ValidatePassword("new_password", d.NewPassword)
}

// LinkIdentityDTO links an external chat identity. An empty id unlinks.
type LinkIdentityDTO struct {
	ExternalID string `json:"external_id"`
}

func (d *LinkIdentityDTO) Normalize() {
	d.ExternalID = strings.TrimSpace(d.ExternalID)
}

type CreateInviteDTO struct {
	Role           string `json:"role,omitempty"`
	ExpiresInHours int    `json:"expires_in_hours,omitempty"`
	// MaxUses defaults to 1 when absent; 0 means unlimited.
	MaxUses *int `json:"max_uses,omitempty"`
}

func (d *CreateInviteDTO) Normalize() {
	d.Role = strings.ToLower(strings.TrimSpace(d.Role))
}

func (d CreateInviteDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("expires_in_hours", d.ExpiresInHours).MinInt(0, internal.ErrCodeValidationFailed)
	if d.MaxUses != nil {
		v.Field("max_uses", *d.MaxUses).MinInt(0, internal.ErrCodeValidationFailed)
	}
	return v.Validate()
}
