package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONMap stores arbitrary structured fields (applicant data, audit
// snapshots) in a single JSON column.
type JSONMap map[string]interface{}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("failed to scan JSONMap: %v", value)
	}
}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	return string(b), err
}

// StringList is a JSON-encoded ordered list of strings (completed step ids).
type StringList []string

func (a *StringList) Scan(value interface{}) error {
	if value == nil {
		*a = StringList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return fmt.Errorf("failed to scan StringList: %v", value)
	}
}

func (a StringList) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	return string(b), err
}

// Contains reports whether id is already in the list.
func (a StringList) Contains(id string) bool {
	for _, s := range a {
		if s == id {
			return true
		}
	}
	return false
}

// ChangeRequest records one "request changes" kickback on a session.
type ChangeRequest struct {
	Form        string `json:"form"`
	Reason      string `json:"reason"`
	RequestedBy uint   `json:"requested_by"`
	RequestedAt string `json:"requested_at"`
}

type ChangeRequestList []ChangeRequest

func (l *ChangeRequestList) Scan(value interface{}) error {
	if value == nil {
		*l = ChangeRequestList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("failed to scan ChangeRequestList: %v", value)
	}
}

func (l ChangeRequestList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	return string(b), err
}
