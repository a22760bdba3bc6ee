package auth

import (
	"strings"

	"github.com/frahmantamala/gameserver-admin/internal"
	"github.com/frahmantamala/gameserver-admin/internal/core/common/validation"
)

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (d *LoginDTO) Normalize() {
	d.Username = strings.TrimSpace(d.Username)
}

// Validate only checks presence; credential mismatch is reported uniformly
// as invalid credentials.
func (d LoginDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("username", d.Username).Required()
	v.Field("password", d.Password).Required()
	return v.Validate()
}

// ClientMeta describes where a login came from.
type ClientMeta struct {
	IP        string
	UserAgent string
}
