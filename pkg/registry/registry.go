// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	err = json.Unmarshal(data, &reg)
	return &reg, err
}

// FindByTaskType returns the activity registered for a Camunda task type.
func (r *ActivityRegistry) FindByTaskType(taskType string) (*Activity, bool) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

// ValidateInput checks a task payload against the activity's registered input
// schema. An activity without a schema accepts anything.
func (r *ActivityRegistry) ValidateInput(taskType string, payload []byte) error {
	activity, ok := r.FindByTaskType(taskType)
	if !ok {
		return fmt.Errorf("no activity registered for task type %s", taskType)
	}
	return validateAgainst(activity.InputSchema, payload)
}

// ValidateOutput checks a task result against the activity's registered
// output schema.
func (r *ActivityRegistry) ValidateOutput(taskType string, payload []byte) error {
	activity, ok := r.FindByTaskType(taskType)
	if !ok {
		return fmt.Errorf("no activity registered for task type %s", taskType)
	}
	return validateAgainst(activity.OutputSchema, payload)
}

func validateAgainst(schema map[string]interface{}, payload []byte) error {
	if len(schema) == 0 {
		return nil
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	documentLoader := gojsonschema.NewBytesLoader(payload)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		issues := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			issues = append(issues, desc.String())
		}
		return fmt.Errorf("payload does not match schema: %s", strings.Join(issues, "; "))
	}
	return nil
}
