package session

import "time"

// Record is the server-side state bound to a user's current login.
//
// A token is honoured only while it equals the corresponding field of the
// live record, so deleting or overwriting the record revokes it.
type Record struct {
	Access    string
	Refresh   string
	CSRF      string
	CreatedAt time.Time
}

const (
	fieldAccess    = "access"
	fieldRefresh   = "refresh"
	fieldCSRF      = "csrf"
	fieldCreatedAt = "created_at"
)

func (r *Record) fields() map[string]interface{} {
	return map[string]interface{}{
		fieldAccess:    r.Access,
		fieldRefresh:   r.Refresh,
		fieldCSRF:      r.CSRF,
		fieldCreatedAt: r.CreatedAt.Unix(),
	}
}
