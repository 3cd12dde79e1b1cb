package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// StringArray stores a string slice as a JSON text column so the same
// model works on PostgreSQL, MySQL and SQLite.
type StringArray []string

// Scan implements the sql.Scanner interface for reading from the database.
func (a *StringArray) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*a = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("StringArray: unsupported scan type %T", value)
	}

	if len(data) == 0 {
		*a = StringArray{}
		return nil
	}
	return json.Unmarshal(data, (*[]string)(a))
}

// Value implements the driver.Valuer interface for writing to the database.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(a))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// GormDataType returns the GORM data type hint.
func (StringArray) GormDataType() string {
	return "text"
}

// Contains reports whether s is an element of the array.
func (a StringArray) Contains(s string) bool {
	for _, v := range a {
		if v == s {
			return true
		}
	}
	return false
}

// LikeEscape is the escape character used by MemberPattern. Queries must
// add `ESCAPE '!'` after the LIKE operand.
const LikeEscape = "!"

// MemberPattern returns a LIKE pattern matching a StringArray column that
// contains s as a whole element.
func MemberPattern(s string) string {
	quoted, _ := json.Marshal(s)
	escaped := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(string(quoted))
	return "%" + escaped + "%"
}
