// Package emailtemplate renders the transactional emails sent by the service.
//
// Every template has an HTML and a plain-text body. Embedded copies are always
// available; LoadOverrides replaces them with objects from a bucket.
package emailtemplate

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	"path"
	"sync"
	texttemplate "text/template"

	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/storage"
)

// Name identifies a template.
type Name string

const (
	// VerificationCode carries a one-time code.
	VerificationCode Name = "verification_code"
	// Welcome is sent once an email address is verified.
	Welcome Name = "welcome"
)

func (n Name) String() string {
	return string(n)
}

var subjects = map[Name]string{
	VerificationCode: "Your Verification Code",
	Welcome:          "Welcome to Admin Pro",
}

// ErrUnknownTemplate is returned for a name without a registered template.
var ErrUnknownTemplate = errors.New("emailtemplate: unknown template")

//go:embed templates/*
var embedded embed.FS

// Rendered is a ready-to-send email body.
type Rendered struct {
	Template Name
	Subject  string
	HTML     string
	Text     string
}

type entry struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

// Source reads template overrides.
type Source interface {
	ReadObject(ctx context.Context, key string) ([]byte, storage.ObjectInfo, error)
}

// Registry holds parsed templates and shared render data.
type Registry struct {
	mu      sync.RWMutex
	entries map[Name]entry
	base    map[string]any
}

// New parses the embedded templates. base is merged into every render.
func New(base map[string]any) (*Registry, error) {
	r := &Registry{entries: make(map[Name]entry, len(subjects)), base: base}
	for name := range subjects {
		htmlSrc, err := embedded.ReadFile(path.Join("templates", name.String()+".html"))
		if err != nil {
			return nil, err
		}
		textSrc, err := embedded.ReadFile(path.Join("templates", name.String()+".txt"))
		if err != nil {
			return nil, err
		}
		if err := r.set(name, htmlSrc, textSrc); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) set(name Name, htmlSrc, textSrc []byte) error {
	h, err := htmltemplate.New(name.String()).Option("missingkey=zero").Parse(string(htmlSrc))
	if err != nil {
		return fmt.Errorf("parse %s html: %w", name, err)
	}
	t, err := texttemplate.New(name.String()).Option("missingkey=zero").Parse(string(textSrc))
	if err != nil {
		return fmt.Errorf("parse %s text: %w", name, err)
	}

	r.mu.Lock()
	r.entries[name] = entry{html: h, text: t}
	r.mu.Unlock()
	return nil
}

// Render executes the named template with data layered over the base data.
func (r *Registry) Render(name Name, data map[string]any) (Rendered, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return Rendered{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}

	merged := make(map[string]any, len(r.base)+len(data))
	for k, v := range r.base {
		merged[k] = v
	}
	for k, v := range data {
		merged[k] = v
	}

	var htmlBuf, textBuf bytes.Buffer
	if err := e.html.Execute(&htmlBuf, merged); err != nil {
		return Rendered{}, err
	}
	if err := e.text.Execute(&textBuf, merged); err != nil {
		return Rendered{}, err
	}

	return Rendered{
		Template: name,
		Subject:  subjects[name],
		HTML:     htmlBuf.String(),
		Text:     textBuf.String(),
	}, nil
}

// LoadOverrides replaces templates with "<prefix>/<name>.html" and
// "<prefix>/<name>.txt" from src. A template keeps its embedded copy when
// either object is missing or fails to parse.
func (r *Registry) LoadOverrides(ctx context.Context, src Source, prefix string) int {
	loaded := 0
	for name := range subjects {
		htmlSrc, err := readOverride(ctx, src, path.Join(prefix, name.String()+".html"))
		if err != nil {
			continue
		}
		textSrc, err := readOverride(ctx, src, path.Join(prefix, name.String()+".txt"))
		if err != nil {
			continue
		}
		if err := r.set(name, htmlSrc, textSrc); err != nil {
			slog.ErrorContext(ctx, "failed to parse email template override", "template", name.String(), "error", err)
			continue
		}
		loaded++
	}
	return loaded
}

// readOverride logs a missing object at debug and anything else as a warning.
func readOverride(ctx context.Context, src Source, key string) ([]byte, error) {
	b, _, err := src.ReadObject(ctx, key)
	switch {
	case errors.Is(err, storage.ErrObjectNotFound):
		slog.DebugContext(ctx, "email template override absent", "key", key)
	case err != nil:
		slog.WarnContext(ctx, "failed to read email template override", "key", key, "error", err)
	}
	return b, err
}
