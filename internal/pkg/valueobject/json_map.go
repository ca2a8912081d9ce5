// Package valueobject holds small column types shared by the repositories.
package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/spf13/cast"
)

// JSONMap is a JSON object column, such as the metadata of a delivery log.
// @swaggertype object
type JSONMap map[string]any

// Value stores nil as SQL NULL and anything else as a JSON object.
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan accepts JSON text, JSON bytes or a map already decoded by the driver.
func (j *JSONMap) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*j = JSONMap{}
		return nil
	case map[string]any:
		*j = v
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("valueobject: cannot scan %T into JSONMap", src)
	}

	out := JSONMap{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("valueobject: decode JSONMap: %w", err)
	}
	*j = out
	return nil
}

// GetString returns the value at key as a string; numbers and booleans are
// formatted, anything else yields "".
func (j JSONMap) GetString(key string) string {
	return cast.ToString(j[key])
}
