package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// FieldChange is one before/after pair inside an audit ChangeSet.
type FieldChange struct {
	Before any `json:"before"`
	After  any `json:"after"`
}

// ChangeSet is the typed diff stored on audit entries, keyed by field
// name. Persisted as jsonb.
type ChangeSet map[string]FieldChange

func (c ChangeSet) Value() (driver.Value, error) {
	if c == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c)
}

func (c *ChangeSet) Scan(value any) error {
	return scanJSON(value, c)
}

// JSONMap backs the pending-change data snapshots. Keys are column
// names of the subject table.
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value any) error {
	return scanJSON(value, m)
}

func scanJSON(value, dst any) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", value)
	}
}
