package scenario

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// ValidationError is a single finding with location context.
type ValidationError struct {
	Phase    string `json:"phase"` // structural, semantic, domain
	Path     string `json:"path"`  // e.g. "urls/3/screen_sizes/0"
	Message  string `json:"message"`
	Severity string `json:"severity"` // error, warning
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Phase, e.Path, e.Message)
}

// HasErrors reports whether errs contains anything more severe than a warning.
func HasErrors(errs []*ValidationError) bool {
	for _, e := range errs {
		if e.Severity != "warning" {
			return true
		}
	}
	return false
}

// ValidateFile runs structural decode, JSON Schema validation and domain
// rules on a scenario file. The catalog is returned whenever decoding
// succeeded, even if later phases report errors.
func ValidateFile(path string) (*Catalog, []*ValidationError) {
	f, err := os.Open(path)
	if err != nil {
		return nil, []*ValidationError{{Phase: "structural", Message: err.Error(), Severity: "error"}}
	}
	defer f.Close()

	doc, err := decode(f)
	if err != nil {
		return nil, []*ValidationError{{Phase: "structural", Message: err.Error(), Severity: "error"}}
	}

	var errs []*ValidationError
	errs = append(errs, validateSemantic(doc)...)
	errs = append(errs, validateDomain(doc)...)

	var cat *Catalog
	if len(doc.URLs) > 0 {
		cat = NewCatalog(doc.URLs)
	}
	return cat, errs
}

func validateSemantic(doc *File) []*ValidationError {
	fail := func(format string, a ...any) []*ValidationError {
		return []*ValidationError{{Phase: "semantic", Message: fmt.Sprintf(format, a...), Severity: "error"}}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fail("marshal for schema validation: %v", err)
	}
	schemaJSON, err := GenerateJSONSchema()
	if err != nil {
		return fail("generate schema: %v", err)
	}
	var schemaDoc any
	if err := json.Unmarshal(schemaJSON, &schemaDoc); err != nil {
		return fail("unmarshal schema: %v", err)
	}

	c := sjsonschema.NewCompiler()
	if err := c.AddResource("scenarios.json", schemaDoc); err != nil {
		return fail("add schema resource: %v", err)
	}
	sch, err := c.Compile("scenarios.json")
	if err != nil {
		return fail("compile schema: %v", err)
	}

	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return fail("unmarshal document: %v", err)
	}
	if err := sch.Validate(instance); err != nil {
		ve, ok := err.(*sjsonschema.ValidationError)
		if !ok {
			return fail("%v", err)
		}
		var errs []*ValidationError
		for _, cause := range flatten(ve) {
			errs = append(errs, &ValidationError{
				Phase:    "semantic",
				Path:     strings.Join(cause.InstanceLocation, "/"),
				Message:  fmt.Sprintf("%v", cause.ErrorKind),
				Severity: "error",
			})
		}
		return errs
	}
	return nil
}

func flatten(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flatten(cause)...)
	}
	return flat
}

func validateDomain(doc *File) []*ValidationError {
	var errs []*ValidationError
	seen := make(map[string]int)
	for i, s := range doc.URLs {
		key := foldKey(s.Name)
		if first, dup := seen[key]; dup {
			errs = append(errs, &ValidationError{
				Phase:    "domain",
				Path:     fmt.Sprintf("urls/%d/name", i),
				Message:  fmt.Sprintf("name %q duplicates scenario %d; lookups by name resolve to the first", s.Name, first),
				Severity: "error",
			})
		} else {
			seen[key] = i
		}
		if len(s.ScreenSizes) == 0 {
			errs = append(errs, &ValidationError{
				Phase:    "domain",
				Path:     fmt.Sprintf("urls/%d/screen_sizes", i),
				Message:  "no screen sizes; the scenario captures nothing",
				Severity: "warning",
			})
		}
		for j, size := range s.ScreenSizes {
			if !ValidScreenSize(size) {
				errs = append(errs, &ValidationError{
					Phase:    "domain",
					Path:     fmt.Sprintf("urls/%d/screen_sizes/%d", i, j),
					Message:  fmt.Sprintf("%q is not <width>x<height>; falls back to %dx%d", size, DefaultWidth, DefaultHeight),
					Severity: "warning",
				})
			}
		}
	}
	return errs
}
