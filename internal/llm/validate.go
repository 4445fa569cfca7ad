package llm

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	schemaMu    sync.Mutex
	schemaCache = map[string]*jsonschema.Schema{}
)

// ValidateJSONAgainstSchema validates data against schemaMap. Compiled
// schemas are cached by their JSON text.
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	schema, err := compileSchema(schemaMap)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return errors.Wrap(err, "unmarshal data")
	}
	if err := schema.Validate(v); err != nil {
		return errors.Wrap(err, "json does not match schema")
	}
	return nil
}

func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, errors.Wrap(err, "marshal schema")
	}
	key := string(b)

	schemaMu.Lock()
	defer schemaMu.Unlock()
	if s, ok := schemaCache[key]; ok {
		return s, nil
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, errors.Wrap(err, "add schema")
	}
	s, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, errors.Wrap(err, "compile schema")
	}
	schemaCache[key] = s
	return s, nil
}
