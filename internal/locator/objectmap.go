package locator

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ObjectMap maps symbolic names such as ":IDE_MainWindow" to locators.
//
// The file format is YAML:
//
//	objects:
//	  ":IDE_MainWindow": "fakeide:/MainWindow{title~='Fake IDE'}"
//	  ":CppEditor":
//	    container: ":IDE_MainWindow"
//	    locator: "//TextEditor{name='CppEditor'}"
//
// An entry with a container omits the application token (or uses "*");
// its segments are appended to the container's.
type ObjectMap struct {
	objects map[string]Locator
}

type objectEntry struct {
	Locator   string `yaml:"locator"`
	Container string `yaml:"container"`
}

func (e *objectEntry) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		e.Locator = value.Value
		return nil
	}
	type plain objectEntry
	return value.Decode((*plain)(e))
}

type objectMapFile struct {
	Objects map[string]objectEntry `yaml:"objects"`
}

// LoadObjectMap reads an object map file.
func LoadObjectMap(path string) (*ObjectMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open object map: %w", err)
	}
	defer f.Close()
	m, err := ParseObjectMap(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ParseObjectMap decodes an object map and resolves every entry, so
// unknown containers, cycles and syntax errors surface at load time.
func ParseObjectMap(r io.Reader) (*ObjectMap, error) {
	var file objectMapFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode object map: %w", err)
	}

	m := &ObjectMap{objects: make(map[string]Locator, len(file.Objects))}
	visiting := make(map[string]bool)
	var build func(name string) (Locator, error)
	build = func(name string) (Locator, error) {
		if l, ok := m.objects[name]; ok {
			return l, nil
		}
		entry, ok := file.Objects[name]
		if !ok {
			return Locator{}, fmt.Errorf("%w %q", ErrUnknownName, name)
		}
		if visiting[name] {
			return Locator{}, fmt.Errorf("container cycle at %q", name)
		}
		visiting[name] = true
		defer delete(visiting, name)

		text := strings.TrimSpace(entry.Locator)
		if entry.Container == "" {
			l, err := Parse(text)
			if err != nil {
				return Locator{}, fmt.Errorf("object %q: %w", name, err)
			}
			m.objects[name] = l
			return l, nil
		}

		parent, err := build(entry.Container)
		if err != nil {
			return Locator{}, fmt.Errorf("object %q: container: %w", name, err)
		}
		if strings.HasPrefix(text, "/") {
			text = AnyApp + ":" + text
		}
		rel, err := Parse(text)
		if err != nil {
			return Locator{}, fmt.Errorf("object %q: %w", name, err)
		}
		if rel.App() != AnyApp {
			return Locator{}, fmt.Errorf("object %q: application token %q conflicts with container %q", name, rel.App(), entry.Container)
		}
		l := rel.Within(parent)
		m.objects[name] = l
		return l, nil
	}

	names := make([]string, 0, len(file.Objects))
	for name := range file.Objects {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !IsSymbolic(name) {
			return nil, fmt.Errorf("object name %q must start with ':'", name)
		}
		if _, err := build(name); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// IsSymbolic reports whether s is a symbolic name rather than locator text.
func IsSymbolic(s string) bool {
	return strings.HasPrefix(s, ":")
}

// Lookup returns the locator registered under name.
func (m *ObjectMap) Lookup(name string) (Locator, bool) {
	if m == nil {
		return Locator{}, false
	}
	l, ok := m.objects[name]
	return l, ok
}

// Resolve turns a symbolic name or locator text into a Locator. A nil map
// only accepts locator text.
func (m *ObjectMap) Resolve(s string) (Locator, error) {
	s = strings.TrimSpace(s)
	if IsSymbolic(s) {
		l, ok := m.Lookup(s)
		if !ok {
			return Locator{}, fmt.Errorf("%w %q", ErrUnknownName, s)
		}
		return l, nil
	}
	return Parse(s)
}

// Names returns the symbolic names in sorted order.
func (m *ObjectMap) Names() []string {
	if m == nil {
		return nil
	}
	names := make([]string, 0, len(m.objects))
	for name := range m.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
