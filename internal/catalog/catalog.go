// Package catalog provides the built-in knowledge base of weight-determination
// methods and loading/validation for external catalog files.
package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed methods.json schema.json
var catalogFiles embed.FS

// WeightMethod is one catalog entry describing a weight-determination method
type WeightMethod struct {
	Name                  string            `json:"name"`
	Type                  string            `json:"type"` // subjective, objective, combination
	Detail                string            `json:"detail"`
	SuitConditions        []string          `json:"suitConditions"`
	Advantages            []string          `json:"advantages"`
	Limitations           []string          `json:"limitations"`
	ImplementationSteps   []string          `json:"implementationSteps"`
	SuitableScenarios     []string          `json:"suitableScenarios,omitempty"`
	Characteristics       map[string]string `json:"characteristics,omitempty"`
	DimensionalAttributes map[string]any    `json:"dimensionalAttributes,omitempty"`
	MathematicalModel     string            `json:"mathematicalModel,omitempty"`
	CalculationExample    string            `json:"calculationExample,omitempty"`
}

// Catalog is the ordered set of available methods
type Catalog struct {
	Methods []WeightMethod
	byName  map[string]*WeightMethod
}

// LoadError reports a catalog that could not be read or parsed
type LoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load catalog %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load catalog %s: %s", e.Path, e.Message)
}

func (e *LoadError) Unwrap() error { return e.Cause }

// SchemaError reports catalog content that violates the catalog schema
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("catalog failed schema validation: %d violation(s), first: %s",
		len(e.Violations), e.Violations[0])
}

// Load returns the built-in catalog embedded in the binary
func Load() (*Catalog, error) {
	data, err := catalogFiles.ReadFile("methods.json")
	if err != nil {
		return nil, &LoadError{Path: "methods.json", Message: "read embedded catalog", Cause: err}
	}
	return parse(data, "methods.json")
}

// LoadFile reads and validates a catalog from an external JSON file,
// allowing deployments to override the built-in method set.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "read catalog file", Cause: err}
	}
	return parse(data, path)
}

// New builds a catalog from in-memory methods, bypassing schema
// validation. Later entries win on duplicate names.
func New(methods []WeightMethod) *Catalog {
	c := &Catalog{
		Methods: methods,
		byName:  make(map[string]*WeightMethod, len(methods)),
	}
	for i := range c.Methods {
		c.byName[c.Methods[i].Name] = &c.Methods[i]
	}
	return c
}

func parse(data []byte, path string) (*Catalog, error) {
	if err := validateSchema(data); err != nil {
		return nil, err
	}

	var methods []WeightMethod
	if err := json.Unmarshal(data, &methods); err != nil {
		return nil, &LoadError{Path: path, Message: "parse catalog JSON", Cause: err}
	}
	if len(methods) == 0 {
		return nil, &LoadError{Path: path, Message: "catalog is empty"}
	}

	c := &Catalog{
		Methods: methods,
		byName:  make(map[string]*WeightMethod, len(methods)),
	}
	for i := range c.Methods {
		m := &c.Methods[i]
		if _, dup := c.byName[m.Name]; dup {
			return nil, &LoadError{Path: path, Message: fmt.Sprintf("duplicate method name %q", m.Name)}
		}
		c.byName[m.Name] = m
	}
	return c, nil
}

// validateSchema checks raw catalog JSON against the embedded JSON Schema
func validateSchema(data []byte) error {
	schemaData, err := catalogFiles.ReadFile("schema.json")
	if err != nil {
		return &LoadError{Path: "schema.json", Message: "read embedded schema", Cause: err}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaData),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return &LoadError{Path: "schema.json", Message: "run schema validation", Cause: err}
	}
	if !result.Valid() {
		violations := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			violations = append(violations, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
		}
		return &SchemaError{Violations: violations}
	}
	return nil
}

// Find returns the method with the given name, or nil
func (c *Catalog) Find(name string) *WeightMethod {
	return c.byName[name]
}

// Names returns all method names in catalog order
func (c *Catalog) Names() []string {
	names := make([]string, len(c.Methods))
	for i, m := range c.Methods {
		names[i] = m.Name
	}
	return names
}

// Len returns the number of methods in the catalog
func (c *Catalog) Len() int { return len(c.Methods) }

// maxPromptListItems caps list fields when preparing methods for prompts
const maxPromptListItems = 3

// FilterForPrompt returns copies of the given methods trimmed for prompt
// inclusion: math models and worked examples are dropped and long list
// fields are capped, keeping the rule-matching prompt within token limits.
func FilterForPrompt(methods []WeightMethod) []WeightMethod {
	filtered := make([]WeightMethod, len(methods))
	for i, m := range methods {
		fm := m
		fm.MathematicalModel = ""
		fm.CalculationExample = ""
		fm.ImplementationSteps = capList(m.ImplementationSteps)
		fm.Advantages = capList(m.Advantages)
		fm.Limitations = capList(m.Limitations)
		filtered[i] = fm
	}
	return filtered
}

func capList(items []string) []string {
	if len(items) <= maxPromptListItems {
		return items
	}
	capped := make([]string, maxPromptListItems, maxPromptListItems+1)
	copy(capped, items[:maxPromptListItems])
	return append(capped, "... (more omitted)")
}
