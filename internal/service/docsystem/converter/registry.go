package converter

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"smartdoc/internal/domain"
	docsysSvc "smartdoc/internal/domain/services/docsystem"
)

// ConverterRegistry manages content converters and routes files by extension.
//
// Thread-safe for concurrent access.
type ConverterRegistry struct {
	mu         sync.RWMutex
	converters map[string]docsysSvc.ContentConverter // key: file extension (e.g., ".html")
}

// NewConverterRegistry creates a registry with standard converters pre-registered.
func NewConverterRegistry() *ConverterRegistry {
	registry := &ConverterRegistry{
		converters: make(map[string]docsysSvc.ContentConverter),
	}

	registry.Register(NewMarkdownConverter())
	registry.Register(NewTextConverter())
	registry.Register(NewHTMLConverter())

	return registry
}

// Register adds a converter and associates it with its supported extensions.
// Extensions are normalized to lowercase with leading dot.
func (r *ConverterRegistry) Register(converter docsysSvc.ContentConverter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ext := range converter.SupportedExtensions() {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		r.converters[ext] = converter
	}
}

// ForFile returns the converter for filename's extension (case-insensitive).
// Unsupported types are a validation error.
func (r *ConverterRegistry) ForFile(filename string) (docsysSvc.ContentConverter, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	r.mu.RLock()
	converter, ok := r.converters[ext]
	r.mu.RUnlock()

	if !ok {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("unsupported file type %q (supported: %s)", ext, strings.Join(r.SupportedExtensions(), ", ")),
		}
	}
	return converter, nil
}

// IsSupported reports whether filename has a registered converter
func (r *ConverterRegistry) IsSupported(filename string) bool {
	_, err := r.ForFile(filename)
	return err == nil
}

// SupportedExtensions returns all registered file extensions, sorted.
func (r *ConverterRegistry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.converters))
	for ext := range r.converters {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
