package operator

import "time"

// Operator is the authenticated principal carried through request contexts.
type Operator struct {
	ID               int64
	Username         string
	Email            string
	Role             string
	IsActive         bool
	ExternalID       string
	ExternalUsername string
	CreatedAt        time.Time
	CreatedBy        *int64
	LastLogin        *time.Time
}

// Summary is the public shape of an operator returned by the API.
type Summary struct {
	ID               int64      `json:"id"`
	Username         string     `json:"username"`
	Email            string     `json:"email,omitempty"`
	Role             string     `json:"role"`
	IsActive         bool       `json:"is_active"`
	ExternalID       string     `json:"external_id,omitempty"`
	ExternalUsername string     `json:"external_username,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	CreatedBy        *int64     `json:"created_by,omitempty"`
	LastLogin        *time.Time `json:"last_login,omitempty"`
}

func (o *Operator) ToSummary() Summary {
	return Summary{
		ID:               o.ID,
		Username:         o.Username,
		Email:            o.Email,
		Role:             o.Role,
		IsActive:         o.IsActive,
		ExternalID:       o.ExternalID,
		ExternalUsername: o.ExternalUsername,
		CreatedAt:        o.CreatedAt,
		CreatedBy:        o.CreatedBy,
		LastLogin:        o.LastLogin,
	}
}
