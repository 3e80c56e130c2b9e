package resource

import (
	"fmt"

	"github.com/spf13/viper"
)

type resourceSpec struct {
	Name         string            `mapstructure:"name"`
	PrimaryKey   string            `mapstructure:"primary_key"`
	Columns      map[string]string `mapstructure:"columns"`
	Associations []associationSpec `mapstructure:"associations"`
}

type associationSpec struct {
	Kind       string `mapstructure:"kind"`
	Target     string `mapstructure:"target"`
	ForeignKey string `mapstructure:"foreign_key"`
	Alias      string `mapstructure:"alias"`
}

// LoadRegistry reads resource declarations from a YAML file and builds the
// registry. The primary key defaults to "id" when omitted.
func LoadRegistry(path string) (*Registry, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read resource file: %w", err)
	}

	var schema struct {
		Resources []resourceSpec `mapstructure:"resources"`
	}
	if err := v.Unmarshal(&schema); err != nil {
		return nil, fmt.Errorf("failed to unmarshal resource file: %w", err)
	}
	if len(schema.Resources) == 0 {
		return nil, fmt.Errorf("resource file declares no resources")
	}

	registry := NewRegistry()
	for _, spec := range schema.Resources {
		d, err := buildDescriptor(spec)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(d); err != nil {
			return nil, err
		}
	}

	// Every association target must itself be declared
	for _, name := range registry.Names() {
		d, _ := registry.Lookup(name)
		for _, assoc := range d.Associations {
			if _, err := registry.Lookup(assoc.Target); err != nil {
				return nil, fmt.Errorf("resource %s: association %s targets undeclared type %s", name, assoc.Alias, assoc.Target)
			}
		}
	}

	return registry, nil
}

func buildDescriptor(spec resourceSpec) (*Descriptor, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("resource declared without a name")
	}

	pk := spec.PrimaryKey
	if pk == "" {
		pk = "id"
	}

	columns := make(map[string]ColumnType, len(spec.Columns))
	for field, typeName := range spec.Columns {
		colType, err := ParseColumnType(typeName)
		if err != nil {
			return nil, fmt.Errorf("resource %s, column %s: %w", spec.Name, field, err)
		}
		columns[field] = colType
	}
	if _, ok := columns[pk]; !ok {
		columns[pk] = ColumnInteger
	}

	associations := make([]Association, 0, len(spec.Associations))
	for _, a := range spec.Associations {
		kind, err := ParseAssociationKind(a.Kind)
		if err != nil {
			return nil, fmt.Errorf("resource %s: %w", spec.Name, err)
		}
		if a.Target == "" || a.ForeignKey == "" || a.Alias == "" {
			return nil, fmt.Errorf("resource %s: associations need target, foreign_key, and alias", spec.Name)
		}
		associations = append(associations, Association{
			Kind:       kind,
			Target:     a.Target,
			ForeignKey: a.ForeignKey,
			Alias:      a.Alias,
		})
	}

	return &Descriptor{
		Name:         spec.Name,
		PrimaryKey:   pk,
		Columns:      columns,
		Associations: associations,
	}, nil
}
