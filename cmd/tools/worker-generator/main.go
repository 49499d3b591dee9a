// cmd/tools/worker-generator/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"jobcore/pkg/registry"
)

// WorkerData holds data for templates
type WorkerData struct {
	Name         string                 `json:"name"`
	PackageName  string                 `json:"packageName"`
	TaskType     string                 `json:"taskType"`
	InputSchema  map[string]interface{} `json:"inputSchema"`
	OutputSchema map[string]interface{} `json:"outputSchema"`
	ErrorCodes   []string               `json:"errorCodes"`
	Description  string                 `json:"description"`
	Category     string                 `json:"category"`
	Timeout      string                 `json:"timeout"`
	Retries      int                    `json:"retries"`
}

// parseSchema extracts properties from a JSON schema object
func parseSchema(schemaObj interface{}) map[string]interface{} {
	if schemaMap, ok := schemaObj.(map[string]interface{}); ok {
		if props, exists := schemaMap["properties"]; exists {
			if properties, ok := props.(map[string]interface{}); ok {
				return properties
			}
		}
	}
	return map[string]interface{}{}
}

// goTypeFromJSONType maps JSON schema types to Go types
func goTypeFromJSONType(jsonType interface{}, jsonFormat interface{}) string {
	if jt, ok := jsonType.(string); ok {
		switch jt {
		case "string":
			return "string"
		case "number":
			return "float64"
		case "integer":
			return "int"
		case "boolean":
			return "bool"
		case "object":
			return "map[string]interface{}"
		case "array":
			return "[]string"
		default:
			return "interface{}"
		}
	}
	return "interface{}"
}

// generateStructFields generates Go struct field definitions from schema properties
func generateStructFields(properties map[string]interface{}) string {
	var fields []string
	for prop, details := range properties {
		propDetails, ok := details.(map[string]interface{})
		if !ok {
			continue
		}
		goType := goTypeFromJSONType(propDetails["type"], propDetails["format"])
		fields = append(fields, fmt.Sprintf("\t%s %s `json:\"%s\"`", upperFirst(prop), goType, prop))
	}
	return strings.Join(fields, "\n")
}

// upperFirst makes the first character uppercase
func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

const configTemplate = `// internal/workers/job/{{ .TaskType }}/config.go
package {{ .PackageName }}

import "time"

const TaskType = "{{ .TaskType }}"

func LoadConfig() *Config {
	return &Config{
		Timeout: 60 * time.Second,
	}
}

// Config holds worker-level settings. Engine behavior is configured on the
// engine, not here.
type Config struct {
	Timeout time.Duration
}
`

const modelsTemplate = `// internal/workers/job/{{ .TaskType }}/models.go
package {{ .PackageName }}

type Input struct {
{{- $inputProps := parseSchema .InputSchema }}
{{- if $inputProps }}
{{ generateStructFields $inputProps }}
{{- else }}
	// TODO: add input fields from the registry schema
{{- end }}
}

type Output struct {
{{- $outputProps := parseSchema .OutputSchema }}
{{- if $outputProps }}
{{ generateStructFields $outputProps }}
{{- else }}
	// TODO: add output fields from the registry schema
{{- end }}
}
`

const handlerTemplate = `// internal/workers/job/{{ .TaskType }}/handler.go
package {{ .PackageName }}

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	commonerrors "jobcore/internal/common/errors"
	"jobcore/internal/common/logger"
)

// LifecycleEngine is the narrow slice of the engine this worker needs.
type LifecycleEngine interface {
	// TODO: declare the engine operation this worker delegates to
}

type Handler struct {
	config       *Config
	engine       LifecycleEngine
	errorHandler *commonerrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, engine LifecycleEngine, log logger.Logger) *Handler {
	return &Handler{
		config:       config,
		engine:       engine,
		errorHandler: commonerrors.NewErrorHandler(log),
		logger:       log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errorHandler.HandleJobError(context.Background(), client, job,
			commonerrors.NewBusinessRuleError("invalid input", fmt.Sprintf("parse input: %v", err)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, h.mapError(err, &input))
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	// TODO: call the engine and shape the output
	return &Output{}, nil
}

func (h *Handler) mapError(err error, input *Input) error {
	switch {
	// TODO: map engine sentinels to standard error codes
	default:
		return commonerrors.NewDatabaseError("{{ .TaskType }}", err)
	}
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	variables, err := json.Marshal(output)
	if err != nil {
		h.logger.Error("failed to marshal output", map[string]interface{}{"error": err.Error()})
		return
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromString(string(variables))
	if err != nil {
		h.logger.Error("failed to build complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err = cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// Execute exposes the core path for tests.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
`

const testTemplate = `// internal/workers/job/{{ .TaskType }}/handler_test.go
package {{ .PackageName }}

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobcore/internal/common/logger"
)

type fakeEngine struct {
	err error
}

// TODO: implement the LifecycleEngine methods on fakeEngine

func newTestHandler(t *testing.T, engine *fakeEngine) *Handler {
	return NewHandler(LoadConfig(), engine, logger.NewTestLogger(t))
}

func TestExecute_Success(t *testing.T) {
	handler := newTestHandler(t, &fakeEngine{})

	output, err := handler.Execute(context.Background(), &Input{})
	require.NoError(t, err)
	assert.NotNil(t, output)
}
`

func main() {
	activity := flag.String("activity", "", "Activity ID from registry (e.g., archive-jobs)")
	outputDir := flag.String("output", "./internal/workers/", "Output directory for the generated worker")
	registryPath := flag.String("registry", "configs/activity-registry.json", "Path to the activity registry JSON file")
	flag.Parse()

	if *activity == "" {
		fmt.Println("Usage: worker-generator --activity <id> --output <dir> [--registry <path>]")
		fmt.Println("\nExample:")
		fmt.Println("  go run cmd/tools/worker-generator/main.go --activity archive-jobs")
		os.Exit(1)
	}

	reg, err := registry.LoadRegistry(*registryPath)
	if err != nil {
		fmt.Printf("Error loading registry from %s: %v\n", *registryPath, err)
		os.Exit(1)
	}

	var foundActivity *registry.Activity
	for _, act := range reg.Activities {
		if act.ID == *activity {
			foundActivity = &act
			break
		}
	}

	if foundActivity == nil {
		fmt.Printf("Activity '%s' not found in registry %s\n", *activity, *registryPath)
		os.Exit(1)
	}

	data := WorkerData{
		Name:         foundActivity.DisplayName,
		PackageName:  strings.ReplaceAll(foundActivity.ID, "-", ""),
		TaskType:     foundActivity.TaskType,
		InputSchema:  foundActivity.InputSchema,
		OutputSchema: foundActivity.OutputSchema,
		ErrorCodes:   foundActivity.ErrorCodes,
		Description:  foundActivity.Description,
		Category:     foundActivity.Category,
		Timeout:      foundActivity.Timeout,
		Retries:      foundActivity.Retries,
	}

	workerDir := filepath.Join(*outputDir, mapCategoryToDirectory(data.Category), foundActivity.ID)

	if err := os.MkdirAll(workerDir, 0755); err != nil {
		fmt.Printf("Error creating directory: %v\n", err)
		os.Exit(1)
	}

	funcMap := template.FuncMap{
		"parseSchema":          parseSchema,
		"goTypeFromJSONType":   goTypeFromJSONType,
		"generateStructFields": generateStructFields,
		"upperFirst":           upperFirst,
	}

	templates := map[string]string{
		"config.go":       configTemplate,
		"models.go":       modelsTemplate,
		"handler.go":      handlerTemplate,
		"handler_test.go": testTemplate,
	}

	for filename, tmplStr := range templates {
		tmpl, err := template.New(filename).Funcs(funcMap).Parse(tmplStr)
		if err != nil {
			fmt.Printf("Error parsing template %s: %v\n", filename, err)
			continue
		}

		filePath := filepath.Join(workerDir, filename)
		file, err := os.Create(filePath)
		if err != nil {
			fmt.Printf("Error creating file %s: %v\n", filePath, err)
			continue
		}

		if err := tmpl.Execute(file, data); err != nil {
			fmt.Printf("Error executing template for %s: %v\n", filename, err)
		}
		file.Close()

		fmt.Printf("✓ Generated %s\n", filePath)
	}

	fmt.Printf("\n✅ Worker scaffold generated successfully at: %s\n", workerDir)
	fmt.Printf("\nNext steps:\n")
	fmt.Printf("  1. Declare the engine interface and fill in execute in handler.go\n")
	fmt.Printf("  2. Map engine sentinels in mapError\n")
	fmt.Printf("  3. Flesh out handler_test.go against the fake engine\n")
	fmt.Printf("  4. Register the worker in cmd/lifecycle-manager/main.go\n")
	fmt.Printf("  5. Add configuration to configs/config.yaml\n")
}

// mapCategoryToDirectory maps registry categories to directory names
func mapCategoryToDirectory(category string) string {
	switch category {
	case "lifecycle":
		return "job"
	default:
		return strings.ToLower(category)
	}
}
