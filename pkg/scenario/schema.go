// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package scenario

import (
	"fmt"
	"strings"

	"ddk.dev/ddk/pkg/sync"
	"github.com/xeipuuv/gojsonschema"
)

// schemaJSON describes a scenario document after YAML decoding.
const schemaJSON = `{
  "type": "object",
  "required": ["steps"],
  "additionalProperties": false,
  "properties": {
    "name": {"type": "string"},
    "instances": {"type": "integer", "minimum": 1},
    "strict": {"type": "boolean"},
    "steps": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["op"],
        "additionalProperties": false,
        "properties": {
          "op": {"enum": ["init", "uninit", "add-head", "remove-tail", "remove-head", "remove-anywhere", "count", "head"]},
          "list": {"type": "integer", "minimum": 0},
          "private": {"type": "string", "minLength": 1},
          "element": {"type": "string", "minLength": 1},
          "expect": {"type": ["string", "integer"]},
          "empty": {"type": "boolean"},
          "error": {"enum": ["bad argument", "internal error"]}
        },
        "allOf": [
          {
            "if": {"properties": {"op": {"enum": ["add-head", "remove-anywhere"]}}},
            "then": {"required": ["element"]}
          }
        ]
      }
    }
  }
}`

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
})

// validate checks a decoded document against the scenario schema.
func validate(doc any) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compiling scenario schema: %w", err)
	}
	res, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validating scenario: %w", err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("invalid scenario: %s", strings.Join(msgs, "; "))
}
