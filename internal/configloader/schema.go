package configloader

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaSource string

const schemaURL = "perlparse://config.schema.json"

//nolint:gochecknoglobals // Compiled once on first use.
var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	errSchema      error
)

// Schema returns the JSON Schema configuration files are checked against.
func Schema() string {
	return schemaSource
}

func configSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true
		compiler.Formats = map[string]func(any) bool{
			"duration": func(v any) bool {
				s, ok := v.(string)
				if !ok {
					return true
				}
				_, err := time.ParseDuration(s)
				return err == nil
			},
		}
		if err := compiler.AddResource(schemaURL, strings.NewReader(schemaSource)); err != nil {
			errSchema = fmt.Errorf("add schema: %w", err)
			return
		}
		compiledSchema, errSchema = compiler.Compile(schemaURL)
	})
	return compiledSchema, errSchema
}

// CheckSchema validates raw YAML configuration against the schema. Each
// violation becomes a ValidationError naming the offending field.
func CheckSchema(path string, data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return &ValidationError{FilePath: path, Message: fmt.Sprintf("parse YAML: %v", err)}
	}
	if doc == nil {
		return nil
	}

	// Round trip through JSON so numbers and maps have the shapes the
	// validator expects.
	raw, err := json.Marshal(doc)
	if err != nil {
		return &ValidationError{FilePath: path, Message: fmt.Sprintf("convert YAML: %v", err)}
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return &ValidationError{FilePath: path, Message: fmt.Sprintf("convert YAML: %v", err)}
	}

	schema, err := configSchema()
	if err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	err = schema.Validate(value)
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return err
	}

	result := &ValidationResult{}
	collectSchemaErrors(verr, path, result)
	return result.Err()
}

// collectSchemaErrors flattens the validator's error tree into leaf
// errors, which carry the most specific messages.
func collectSchemaErrors(verr *jsonschema.ValidationError, path string, result *ValidationResult) {
	stack := []*jsonschema.ValidationError{verr}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if len(top.Causes) > 0 {
			for i := len(top.Causes) - 1; i >= 0; i-- {
				stack = append(stack, top.Causes[i])
			}
			continue
		}
		result.Errors = append(result.Errors, ValidationError{
			Field:    pointerToField(top.InstanceLocation),
			Message:  top.Message,
			FilePath: path,
		})
	}
}

// pointerToField turns a JSON pointer such as /files/include/0 into
// files.include[0].
func pointerToField(pointer string) string {
	parts := strings.Split(strings.TrimPrefix(pointer, "/"), "/")
	var b strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		if part[0] >= '0' && part[0] <= '9' {
			b.WriteString("[" + part + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}
