package authmodel

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// SessionEntity converts a session to a storage record using default field names.
func SessionEntity(s Session) map[string]any {
	e := map[string]any{
		"userId":    s.UserID,
		"expiresAt": s.ExpiresAt,
		"createdAt": s.CreatedAt,
		"updatedAt": s.UpdatedAt,
	}
	if s.ID != "" {
		e["id"] = s.ID
	}
	if s.Token != "" {
		e["token"] = s.Token
	}
	if s.IPAddress != "" {
		e["ipAddress"] = s.IPAddress
	}
	if s.UserAgent != "" {
		e["userAgent"] = s.UserAgent
	}
	return e
}

// UserEntity converts a user to a storage record using default field names.
func UserEntity(u User) map[string]any {
	e := map[string]any{
		"id":            u.ID,
		"email":         u.Email,
		"emailVerified": u.EmailVerified,
		"name":          u.Name,
		"createdAt":     u.CreatedAt,
		"updatedAt":     u.UpdatedAt,
	}
	if u.Username != "" {
		e["username"] = u.Username
	}
	if u.Image != "" {
		e["image"] = u.Image
	}
	if u.Role != nil {
		e["role"] = u.Role
	}
	return e
}

// Decode copies a storage record into out through its JSON form.
func Decode(entity map[string]any, out any) error {
	if entity == nil {
		return errors.New("[authmodel.Decode] nil entity")
	}
	raw, err := json.Marshal(entity)
	if err != nil {
		return errors.Wrap(err, "[authmodel.Decode] marshal")
	}
	return errors.Wrap(json.Unmarshal(raw, out), "[authmodel.Decode] unmarshal")
}

// ExpiresAtMillis interprets an expiresAt value as epoch milliseconds. It accepts
// time.Time, RFC3339 strings and numeric epoch milliseconds.
func ExpiresAtMillis(v any) (int64, error) {
	switch x := v.(type) {
	case time.Time:
		return x.UnixMilli(), nil
	case *time.Time:
		if x == nil {
			return 0, errors.New("expiresAt is nil")
		}
		return x.UnixMilli(), nil
	case string:
		t, err := time.Parse(time.RFC3339Nano, x)
		if err != nil {
			return 0, errors.Wrapf(err, "expiresAt %q is not a valid timestamp", x)
		}
		return t.UnixMilli(), nil
	case int:
		return int64(x), nil
	case int64:
		return x, nil
	case float64:
		return int64(x), nil
	case json.Number:
		return x.Int64()
	default:
		return 0, errors.Errorf("expiresAt has unsupported type %T", v)
	}
}
