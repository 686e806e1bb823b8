package profile

import (
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const profileSchema = `{
  "type": "object",
  "required": ["profiles"],
  "properties": {
    "profiles": {
      "type": "object",
      "minProperties": 1,
      "additionalProperties": {
        "type": "object",
        "required": ["method"],
        "additionalProperties": false,
        "properties": {
          "method": {"enum": ["atr", "percentage", "swing_low"]},
          "atr_multiplier": {"type": "number", "exclusiveMinimum": 0},
          "percentage": {"type": "number", "exclusiveMinimum": 0, "exclusiveMaximum": 1},
          "swing_low_period": {"type": "integer", "minimum": 1},
          "rr_tp1": {"type": "number", "exclusiveMinimum": 0},
          "rr_tp2": {"type": "number", "exclusiveMinimum": 0}
        }
      }
    }
  }
}`

func compileSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("risk_profiles.json", strings.NewReader(profileSchema)); err != nil {
		return nil, err
	}
	return compiler.Compile("risk_profiles.json")
}

// toJSONValue 把 yaml 解出的通用结构转成 schema 可校验的 JSON 值。
func toJSONValue(doc any) (any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
