// Package schema bundles the JSON Schema used to self-check a task
// manifest before Start.
package schema

// ManifestSchema is a JSON Schema (draft-07) describing the shape of a
// TaskManifest document.
const ManifestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "rain-executor task manifest",
  "type": "object",
  "required": ["tasks"],
  "properties": {
    "tasks": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {
            "type": "string",
            "minLength": 1
          },
          "in_args": {
            "type": "integer",
            "minimum": 0
          }
        },
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false
}`
