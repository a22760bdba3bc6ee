package gameconfig

import (
	"strings"
)

// Header is written at the top of every serialized document.
const Header = "## Settings file was created by plugin Techtonica Dedicated Server"

// Document is a section -> key -> value view of the game's config file.
// Sections and keys keep their first-seen order.
type Document struct {
	sections []*Section
	index    map[string]*Section
}

type Section struct {
	Name   string
	keys   []string
	values map[string]string
}

func NewDocument() *Document {
	return &Document{index: make(map[string]*Section)}
}

// Section returns the named section, creating it at the end if needed.
func (d *Document) Section(name string) *Section {
	if s, ok := d.index[name]; ok {
		return s
	}
	s := &Section{Name: name, values: make(map[string]string)}
	d.sections = append(d.sections, s)
	d.index[name] = s
	return s
}

func (d *Document) Sections() []*Section {
	return d.sections
}

func (d *Document) Get(section, key string) (string, bool) {
	s, ok := d.index[section]
	if !ok {
		return "", false
	}
	v, ok := s.values[key]
	return v, ok
}

func (d *Document) Set(section, key, value string) {
	d.Section(section).Set(key, value)
}

func (s *Section) Set(key, value string) {
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

func (s *Section) Keys() []string {
	return s.keys
}

func (s *Section) Value(key string) string {
	return s.values[key]
}

// Map flattens the document for JSON responses.
func (d *Document) Map() map[string]map[string]string {
	out := make(map[string]map[string]string, len(d.sections))
	for _, s := range d.sections {
		values := make(map[string]string, len(s.keys))
		for _, k := range s.keys {
			values[k] = s.values[k]
		}
		out[s.Name] = values
	}
	return out
}

// Equal compares content and order.
func (d *Document) Equal(other *Document) bool {
	if len(d.sections) != len(other.sections) {
		return false
	}
	for i, s := range d.sections {
		o := other.sections[i]
		if s.Name != o.Name || len(s.keys) != len(o.keys) {
			return false
		}
		for j, k := range s.keys {
			if o.keys[j] != k || o.values[k] != s.values[k] {
				return false
			}
		}
	}
	return true
}

// Parse reads "[section]" blocks of "key = value" lines. Comment lines
// (# or ;), lines without '=' and key lines before the first section are
// dropped. A repeated section header continues the earlier section.
func Parse(text string) *Document {
	doc := NewDocument()
	var current *Section

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
			current = doc.Section(strings.TrimSpace(line[1 : len(line)-1]))
		case strings.HasPrefix(line, "#"), strings.HasPrefix(line, ";"):
			continue
		default:
			key, value, ok := strings.Cut(line, "=")
			if !ok || current == nil {
				continue
			}
			current.Set(strings.TrimSpace(key), strings.TrimSpace(value))
		}
	}
	return doc
}

// Serialize writes the header, then each section followed by its keys in
// insertion order, with blank lines between blocks.
func (d *Document) Serialize() string {
	var b strings.Builder
	b.WriteString(Header)
	b.WriteString("\n\n")
	for _, s := range d.sections {
		b.WriteString("[")
		b.WriteString(s.Name)
		b.WriteString("]\n\n")
		for _, k := range s.keys {
			b.WriteString(k)
			b.WriteString(" = ")
			b.WriteString(s.values[k])
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// ForceHeadless sets the flags the dedicated server needs to come up
// unattended.
func ForceHeadless(doc *Document) {
	doc.Set("Server", "AutoStartServer", "true")
	doc.Set("Server", "HeadlessMode", "true")
	doc.Set("General", "EnableDirectConnect", "true")
}
