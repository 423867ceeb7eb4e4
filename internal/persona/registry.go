package persona

import (
	"strings"
	"text/template"

	"github.com/pkg/errors"
)

// ErrUnknownPersona is wrapped by Get when the name is not registered.
var ErrUnknownPersona = errors.New("unknown persona")

// Persona is a customer archetype. Values are copies; the registry never changes after construction.
type Persona struct {
	Name    string
	Speaker string
	Opening string
	Prompt  string
}

// Slots fills a persona template.
type Slots struct {
	History string
	Input   string
	Context string
}

const augmentedSuffix = `

相关产品信息:
{{.Context}}

请简洁地以您的角色身份回应（控制在100字以内）：
`

// Registry maps persona names to their parsed templates.
type Registry struct {
	order     []string
	personas  map[string]Persona
	plain     map[string]*template.Template
	augmented map[string]*template.Template
}

// New parses the given personas. Duplicate names and bad templates are errors.
func New(personas ...Persona) (*Registry, error) {
	r := &Registry{
		personas:  make(map[string]Persona, len(personas)),
		plain:     make(map[string]*template.Template, len(personas)),
		augmented: make(map[string]*template.Template, len(personas)),
	}
	for _, p := range personas {
		if _, dup := r.personas[p.Name]; dup {
			return nil, errors.Errorf("duplicate persona %q", p.Name)
		}
		plain, err := template.New(p.Name).Option("missingkey=error").Parse(p.Prompt)
		if err != nil {
			return nil, errors.Wrapf(err, "parse persona %q", p.Name)
		}
		aug, err := template.New(p.Name + "/augmented").Option("missingkey=error").Parse(p.Prompt + augmentedSuffix)
		if err != nil {
			return nil, errors.Wrapf(err, "parse augmented persona %q", p.Name)
		}
		r.order = append(r.order, p.Name)
		r.personas[p.Name] = p
		r.plain[p.Name] = plain
		r.augmented[p.Name] = aug
	}
	return r, nil
}

// Default returns the built-in registry.
func Default() *Registry {
	r, err := New(builtin...)
	if err != nil {
		panic(err)
	}
	return r
}

// Names lists persona names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Get resolves a persona by exact name.
func (r *Registry) Get(name string) (Persona, error) {
	p, ok := r.personas[name]
	if !ok {
		return Persona{}, errors.Wrapf(ErrUnknownPersona, "%q (known: %s)", name, strings.Join(r.order, ", "))
	}
	return p, nil
}

// Render fills the persona template. With augmented set, the context block is appended.
func (r *Registry) Render(name string, augmented bool, slots Slots) (string, error) {
	set := r.plain
	if augmented {
		set = r.augmented
	}
	tmpl, ok := set[name]
	if !ok {
		_, err := r.Get(name)
		return "", err
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, slots); err != nil {
		return "", errors.Wrapf(err, "render persona %q", name)
	}
	return b.String(), nil
}
