package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSON 任意键值结构，按 JSON 文本落库
type JSON map[string]interface{}

// Value 实现 driver.Valuer 接口
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan 实现 sql.Scanner 接口
func (j *JSON) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*j = make(JSON)
		return nil
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return fmt.Errorf("unsupported json column type %T", value)
	}
}
