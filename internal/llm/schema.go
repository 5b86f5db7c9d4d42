package llm

import (
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

const geminiResponseSchema = `{
  "type": "object",
  "required": ["candidates"],
  "properties": {
    "candidates": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["content"],
        "properties": {
          "content": {
            "type": "object",
            "required": ["parts"],
            "properties": {
              "parts": {
                "type": "array",
                "minItems": 1,
                "items": {
                  "type": "object",
                  "required": ["text"],
                  "properties": {"text": {"type": "string", "minLength": 1}}
                }
              }
            }
          }
        }
      }
    }
  }
}`

const chatCompletionSchema = `{
  "type": "object",
  "required": ["choices"],
  "properties": {
    "choices": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["message"],
        "properties": {
          "message": {
            "type": "object",
            "required": ["content"],
            "properties": {"content": {"type": "string", "minLength": 1}}
          }
        }
      }
    }
  }
}`

// ResponseValidator checks raw provider payloads against a JSON schema
// compiled on first use.
type ResponseValidator struct {
	once   sync.Once
	source string
	schema *gojsonschema.Schema
	err    error
}

func NewResponseValidator(schema string) *ResponseValidator {
	return &ResponseValidator{source: schema}
}

func (v *ResponseValidator) load() {
	v.schema, v.err = gojsonschema.NewSchema(gojsonschema.NewStringLoader(v.source))
	if v.err != nil {
		v.err = fmt.Errorf("compile schema: %w", v.err)
	}
}

// Validate returns an error wrapping ErrInvalidResponse when body does not
// match the schema or is not JSON.
func (v *ResponseValidator) Validate(body []byte) error {
	v.once.Do(v.load)
	if v.err != nil {
		return v.err
	}
	res, err := v.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if !res.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, res.Errors())
	}
	return nil
}
