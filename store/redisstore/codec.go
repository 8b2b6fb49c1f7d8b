package redisstore

import (
	"encoding/json"
	"strconv"
	"time"

	passAuth "github.com/MrEthical07/passAuth"
)

const (
	fieldName           = "name"
	fieldPasswordHash   = "password_hash"
	fieldToken          = "token"
	fieldTokenExpiresAt = "token_expires_at"
	fieldProfile        = "profile"
	fieldCreatedAt      = "created_at"
	fieldUpdatedAt      = "updated_at"
)

func encodeUser(u passAuth.UserRecord) (map[string]any, error) {
	profile := "{}"
	if len(u.Profile) > 0 {
		raw, err := json.Marshal(u.Profile)
		if err != nil {
			return nil, err
		}
		profile = string(raw)
	}

	return map[string]any{
		fieldName:           u.Name,
		fieldPasswordHash:   u.PasswordHash,
		fieldToken:          u.Token,
		fieldTokenExpiresAt: encodeTime(u.TokenExpiresAt),
		fieldProfile:        profile,
		fieldCreatedAt:      encodeTime(u.CreatedAt),
		fieldUpdatedAt:      encodeTime(u.UpdatedAt),
	}, nil
}

func decodeUser(id int64, fields map[string]string) (passAuth.UserRecord, error) {
	u := passAuth.UserRecord{
		ID:           id,
		Name:         fields[fieldName],
		PasswordHash: fields[fieldPasswordHash],
		Token:        fields[fieldToken],
	}

	var err error
	if u.TokenExpiresAt, err = decodeTime(fields[fieldTokenExpiresAt]); err != nil {
		return passAuth.UserRecord{}, err
	}
	if u.CreatedAt, err = decodeTime(fields[fieldCreatedAt]); err != nil {
		return passAuth.UserRecord{}, err
	}
	if u.UpdatedAt, err = decodeTime(fields[fieldUpdatedAt]); err != nil {
		return passAuth.UserRecord{}, err
	}

	if raw := fields[fieldProfile]; raw != "" && raw != "{}" {
		if err := json.Unmarshal([]byte(raw), &u.Profile); err != nil {
			return passAuth.UserRecord{}, err
		}
	}
	return u, nil
}

// Zero times are stored as the empty string.
func encodeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func parseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
