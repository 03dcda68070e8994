package generator

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	invopop "github.com/invopop/jsonschema"
	"github.com/kaptinlin/jsonschema"
)

// compiledSchema pairs the prompt rendering of a schema with its validator.
type compiledSchema struct {
	pretty    string
	validator *jsonschema.Schema
}

var schemaCache sync.Map // reflect.Type -> *compiledSchema

func schemaFor(t reflect.Type) (*compiledSchema, error) {
	if cached, ok := schemaCache.Load(t); ok {
		return cached.(*compiledSchema), nil
	}

	// Unknown keys are ignored on decode, so the schema tolerates them too.
	r := &invopop.Reflector{DoNotReference: true, ExpandedStruct: true, AllowAdditionalProperties: true}
	s := r.ReflectFromType(t)

	pretty, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema for %s: %w", t.Name(), err)
	}

	compiled, err := jsonschema.NewCompiler().Compile(pretty)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON Schema for %s: %w", t.Name(), err)
	}

	cs := &compiledSchema{pretty: string(pretty), validator: compiled}
	schemaCache.Store(t, cs)
	return cs, nil
}

// validate returns nil when data satisfies the schema, otherwise an error
// listing every failing location.
func (cs *compiledSchema) validate(data any) error {
	result := cs.validator.Validate(data)
	if result.IsValid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors))
	for field, e := range result.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", field, e.Message))
	}
	sort.Strings(msgs)
	return fmt.Errorf("validation failed: %s", strings.Join(msgs, "; "))
}
