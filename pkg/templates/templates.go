package templates

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Template names
const (
	DeployWrapper = "deploy-wrapper"
)

//go:embed defaults/*.template
var defaults embed.FS

// TemplateData holds variables for template rendering.
type TemplateData map[string]string

// GetTemplatePaths returns the search paths for templates
func GetTemplatePaths(templateName string) []string {
	filename := templateName + ".template"
	return []string{
		filepath.Join(".", "templates", filename),
		filepath.Join(".", "config", "templates", filename),
		filepath.Join("/etc", "leadbox", "templates", filename),
	}
}

// GetTemplate returns the raw template content by name.
// Templates are loaded from the filesystem in the following order:
// 1. ./templates/<name>.template
// 2. ./config/templates/<name>.template
// 3. /etc/leadbox/templates/<name>.template
// and fall back to the copy compiled into the binary.
func GetTemplate(name string) (string, error) {
	return GetTemplateFrom(GetTemplatePaths(name), name)
}

// GetTemplateFrom is GetTemplate with an explicit list of override paths.
func GetTemplateFrom(paths []string, name string) (string, error) {
	if !ValidateTemplate(name) {
		return "", fmt.Errorf("unknown template: %s", name)
	}

	for _, path := range paths {
		if content, err := os.ReadFile(path); err == nil {
			return string(content), nil
		}
	}

	content, err := defaults.ReadFile("defaults/" + name + ".template")
	if err != nil {
		return "", fmt.Errorf("template file not found: %s (searched: %v)", name, paths)
	}
	return string(content), nil
}

// Render substitutes {{PLACEHOLDER}} markers in content in a single pass,
// so a value containing a marker is never expanded again.
//
// Example:
//
//	rendered := Render("cd {{PROJECT_PATH}}", TemplateData{"PROJECT_PATH": "/srv/site"})
func Render(content string, data TemplateData) string {
	pairs := make([]string, 0, len(data)*2)
	for key, value := range data {
		pairs = append(pairs, "{{"+key+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(content)
}

// RenderNamed loads the named template and renders it.
func RenderNamed(templateName string, data TemplateData) (string, error) {
	content, err := GetTemplate(templateName)
	if err != nil {
		return "", err
	}
	return Render(content, data), nil
}

// ListTemplates returns a list of all available template names.
func ListTemplates() []string {
	return []string{
		DeployWrapper,
	}
}

// ValidateTemplate checks if a template name is valid.
func ValidateTemplate(name string) bool {
	for _, known := range ListTemplates() {
		if known == name {
			return true
		}
	}
	return false
}
