// pkg/registry/registry_test.go
package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() *ActivityRegistry {
	return &ActivityRegistry{
		Version: "1.0.0",
		Activities: []Activity{
			{
				ID:       "create-job",
				TaskType: "create-job",
				InputSchema: map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"employerId", "job"},
					"properties": map[string]interface{}{
						"employerId": map[string]interface{}{"type": "string"},
						"job":        map[string]interface{}{"type": "object"},
					},
				},
			},
			{
				ID:       "archive-jobs",
				TaskType: "archive-jobs",
			},
		},
	}
}

func TestFindByTaskType(t *testing.T) {
	reg := testRegistry()

	activity, ok := reg.FindByTaskType("create-job")
	require.True(t, ok)
	assert.Equal(t, "create-job", activity.ID)

	_, ok = reg.FindByTaskType("unknown-task")
	assert.False(t, ok)
}

func TestValidateInput_Valid(t *testing.T) {
	reg := testRegistry()

	err := reg.ValidateInput("create-job", []byte(`{"employerId":"emp-1","job":{"title":"Driver"}}`))
	assert.NoError(t, err)
}

func TestValidateInput_MissingRequiredField(t *testing.T) {
	reg := testRegistry()

	err := reg.ValidateInput("create-job", []byte(`{"job":{"title":"Driver"}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "employerId")
}

func TestValidateInput_NoSchemaAcceptsAnything(t *testing.T) {
	reg := testRegistry()

	err := reg.ValidateInput("archive-jobs", []byte(`{"anything":true}`))
	assert.NoError(t, err)
}

func TestValidateInput_UnknownTaskType(t *testing.T) {
	reg := testRegistry()

	err := reg.ValidateInput("unknown-task", []byte(`{}`))
	assert.Error(t, err)
}
