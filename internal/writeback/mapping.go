package writeback

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/model"
)

//go:embed mapping.yaml
var defaultMappingYAML []byte

// DefaultActiveFlag is written when an app has no status column and no
// explicit active_flags.
const DefaultActiveFlag = "is_active"

// ColumnMapping maps normalized field names onto one app's columns.  An
// empty value means the app has no column for that field.
type ColumnMapping struct {
	FirstName   string   `yaml:"first_name"`
	LastName    string   `yaml:"last_name"`
	Name        string   `yaml:"name"`
	Email       string   `yaml:"email"`
	Phone       string   `yaml:"phone"`
	Role        string   `yaml:"role"`
	Status      string   `yaml:"status"`
	ActiveFlags []string `yaml:"active_flags"`
}

// Combined reports whether first and last name share one column.
func (m ColumnMapping) Combined() bool { return m.Name != "" }

func (m ColumnMapping) empty() bool {
	return m.FirstName == "" && m.LastName == "" && m.Name == "" && m.Email == "" &&
		m.Phone == "" && m.Role == "" && m.Status == "" && len(m.ActiveFlags) == 0
}

// activeFlags returns the boolean columns used to express status.
func (m ColumnMapping) activeFlags() []string {
	if len(m.ActiveFlags) > 0 {
		return m.ActiveFlags
	}
	return []string{DefaultActiveFlag}
}

// Mappings holds the default mapping, per-app overrides and the writable
// table overrides.
type Mappings struct {
	Default        ColumnMapping            `yaml:"default"`
	Apps           map[string]ColumnMapping `yaml:"apps"`
	TableOverrides map[string]string        `yaml:"table_overrides"`
}

// For returns the mapping for app, falling back to the default entry.
func (m *Mappings) For(app string) ColumnMapping {
	if cm, ok := m.Apps[app]; ok {
		return cm
	}
	return m.Default
}

// TableFor returns the writable table for p: the override when one exists,
// otherwise the registry's users table.
func (m *Mappings) TableFor(p model.ProjectConfig) string {
	if t, ok := m.TableOverrides[p.AppName]; ok && t != "" {
		return t
	}
	return p.Table()
}

// LoadMappings reads mappings from path, or the embedded defaults when
// path is empty.
func LoadMappings(path string) (*Mappings, error) {
	data := defaultMappingYAML
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read mapping file: %w", err)
		}
		data = b
	}
	return ParseMappings(data)
}

// ParseMappings decodes YAML mapping data and checks that the default
// entry can express at least one field.
func ParseMappings(data []byte) (*Mappings, error) {
	var m Mappings
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse mappings: %w", err)
	}
	if m.Default.empty() {
		return nil, fmt.Errorf("parse mappings: default mapping is empty")
	}
	if m.Apps == nil {
		m.Apps = map[string]ColumnMapping{}
	}
	if m.TableOverrides == nil {
		m.TableOverrides = map[string]string{}
	}
	return &m, nil
}
