// cmd/tools/registry-updater/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/tabwriter"
	"time"

	"maritime-edge/internal/common/errors"
	"maritime-edge/pkg/registry"
)

const defaultRegistryPath = "configs/functions.json"

var functionName = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)

func main() {
	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)

	// Add command flags
	addPath := addCmd.String("path", defaultRegistryPath, "Path to registry file")
	nameAdd := addCmd.String("name", "", "Function name as mounted under /functions/v1 (e.g., evaluate-drill)")
	displayName := addCmd.String("displayName", "", "Display Name (e.g., Evaluate Drill)")
	description := addCmd.String("description", "", "Description")
	category := addCmd.String("category", "", "Category (e.g., training)")
	errorCodes := addCmd.String("errorCodes", "", "Comma-separated error codes the function can return")
	tags := addCmd.String("tags", "", "Comma-separated tags")

	// Update command flags
	updatePath := updateCmd.String("path", defaultRegistryPath, "Path to registry file")
	nameUpdate := updateCmd.String("name", "", "Function name to update")
	field := updateCmd.String("field", "", "Field to update (displayName, description, category, errorCodes, tags)")
	value := updateCmd.String("value", "", "New value for the field")

	validatePath := validateCmd.String("path", defaultRegistryPath, "Path to registry file")
	listPath := listCmd.String("path", defaultRegistryPath, "Path to registry file")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add":
		_ = addCmd.Parse(os.Args[2:])
		if *nameAdd == "" || *displayName == "" || *description == "" || *category == "" {
			fmt.Println("Error: name, displayName, description, and category are required for add.")
			addCmd.Usage()
			os.Exit(1)
		}
		fn := registry.Function{
			Name:        *nameAdd,
			DisplayName: *displayName,
			Description: *description,
			Category:    *category,
			ErrorCodes:  splitList(*errorCodes),
			Tags:        splitList(*tags),
		}
		if err := addFunction(*addPath, fn); err != nil {
			fmt.Printf("Error adding function: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Added function: %s\n", *nameAdd)

	case "update":
		_ = updateCmd.Parse(os.Args[2:])
		if *nameUpdate == "" || *field == "" || *value == "" {
			fmt.Println("Error: name, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		if err := updateFunction(*updatePath, *nameUpdate, *field, *value); err != nil {
			fmt.Printf("Error updating function: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated function %s, field %s to %s\n", *nameUpdate, *field, *value)

	case "validate":
		_ = validateCmd.Parse(os.Args[2:])
		reg, err := registry.LoadRegistry(*validatePath)
		if err == nil {
			err = validateRegistry(reg)
		}
		if err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Registry validation passed. Found %d functions.\n", len(reg.Functions))

	case "list":
		_ = listCmd.Parse(os.Args[2:])
		reg, err := registry.LoadRegistry(*listPath)
		if err != nil {
			fmt.Printf("Error loading registry: %v\n", err)
			os.Exit(1)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tCATEGORY\tDISPLAY NAME")
		for _, fn := range reg.Functions {
			fmt.Fprintf(w, "%s\t%s\t%s\n", fn.Name, fn.Category, fn.DisplayName)
		}
		_ = w.Flush()

	case "help":
		fallthrough
	default:
		help()
	}
}

func addFunction(path string, fn registry.Function) error {
	if !functionName.MatchString(fn.Name) {
		return fmt.Errorf("invalid function name %q: use lowercase words separated by hyphens", fn.Name)
	}

	reg, err := registry.LoadRegistry(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		reg = &registry.FunctionRegistry{Version: "1.0.0"}
	}

	for _, existing := range reg.Functions {
		if existing.Name == fn.Name {
			return fmt.Errorf("function %s already exists", fn.Name)
		}
	}
	if err := checkErrorCodes(fn); err != nil {
		return err
	}

	reg.Functions = append(reg.Functions, fn)
	reg.LastUpdated = time.Now().Format("2006-01-02")
	return saveRegistry(reg, path)
}

func updateFunction(path, name, field, value string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	idx := -1
	for i := range reg.Functions {
		if reg.Functions[i].Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("function %s not found", name)
	}

	fn := &reg.Functions[idx]
	switch field {
	case "displayName":
		fn.DisplayName = value
	case "description":
		fn.Description = value
	case "category":
		fn.Category = value
	case "errorCodes":
		fn.ErrorCodes = splitList(value)
		if err := checkErrorCodes(*fn); err != nil {
			return err
		}
	case "tags":
		fn.Tags = splitList(value)
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	reg.LastUpdated = time.Now().Format("2006-01-02")
	return saveRegistry(reg, path)
}

func validateRegistry(reg *registry.FunctionRegistry) error {
	if len(reg.Functions) == 0 {
		return fmt.Errorf("registry contains no functions")
	}

	names := make(map[string]bool)
	for _, fn := range reg.Functions {
		if fn.Name == "" {
			return fmt.Errorf("function missing required field: name")
		}
		if names[fn.Name] {
			return fmt.Errorf("duplicate function name: %s", fn.Name)
		}
		names[fn.Name] = true

		if !functionName.MatchString(fn.Name) {
			return fmt.Errorf("function %s has an invalid name", fn.Name)
		}
		if fn.DisplayName == "" {
			return fmt.Errorf("function %s missing required field: displayName", fn.Name)
		}
		if fn.Category == "" {
			return fmt.Errorf("function %s missing required field: category", fn.Name)
		}
		if err := checkErrorCodes(fn); err != nil {
			return err
		}
	}
	return nil
}

func checkErrorCodes(fn registry.Function) error {
	for _, code := range fn.ErrorCodes {
		if !errors.IsKnownCode(code) {
			return fmt.Errorf("function %s lists unknown error code %s", fn.Name, code)
		}
	}
	return nil
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// saveRegistry handles saving the registry to file
func saveRegistry(reg *registry.FunctionRegistry, path string) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

func help() {
	fmt.Print(`
Usage: registry-updater <command> [flags]

Commands:
  add      Add a function's catalog entry
  update   Update a field of an existing entry
  validate Validate the registry file
  list     Print the registered functions
  help     Show this help message

Examples:
  registry-updater add -name evaluate-drill -displayName "Evaluate Drill" -description "Scores an emergency drill" -category training -errorCodes VALIDATION_ERROR,OPENAI_API_ERROR
  registry-updater update -name evaluate-drill -field tags -value ai,drills
  registry-updater validate -path configs/functions.json

Use 'registry-updater <command> -h' for more information about a command.
`)
}
