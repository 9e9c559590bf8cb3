package schema

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// #region file-format
// fileSchema is the YAML shape of a schema definition:
//
//	identity: name
//	fields:
//	  - key: weight
//	    kind: numeric
//	    required: true
//	    min: 0.1
//	    max: 40000
//	    unit: kg
type fileSchema struct {
	Identity string      `yaml:"identity"`
	Fields   []fileField `yaml:"fields"`
}

type fileField struct {
	Key        string   `yaml:"key"`
	Label      string   `yaml:"label"`
	Kind       Kind     `yaml:"kind"`
	Required   bool     `yaml:"required"`
	AIAssisted bool     `yaml:"ai_assisted"`
	Min        *float64 `yaml:"min"`
	Max        *float64 `yaml:"max"`
	Integer    bool     `yaml:"integer"`
	Unit       string   `yaml:"unit"`
	Allowed    []string `yaml:"allowed"`
	Pattern    string   `yaml:"pattern"`
	Hint       string   `yaml:"hint"`
}

// #endregion file-format

// #region load
// Load reads a YAML schema definition from path.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML schema definition.
func Parse(data []byte) (*Schema, error) {
	var fs fileSchema
	if err := yaml.Unmarshal(data, &fs); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	fields := make([]Field, 0, len(fs.Fields))
	for _, ff := range fs.Fields {
		c, err := ff.constraint()
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", ff.Key, err)
		}
		fields = append(fields, Field{
			Key:        ff.Key,
			Label:      ff.Label,
			Required:   ff.Required,
			AIAssisted: ff.AIAssisted,
			Constraint: c,
		})
	}
	return New(fs.Identity, fields...)
}

func (ff fileField) constraint() (Constraint, error) {
	switch ff.Kind {
	case KindNumeric:
		return Numeric{Min: ff.Min, Max: ff.Max, Integer: ff.Integer, Unit: ff.Unit}, nil
	case KindEnum:
		if len(ff.Allowed) == 0 {
			return nil, fmt.Errorf("enum without allowed values")
		}
		return Enum{Allowed: ff.Allowed}, nil
	case KindPattern:
		re, err := regexp.Compile(ff.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile pattern: %w", err)
		}
		return Pattern{Expr: re, Hint: ff.Hint}, nil
	case KindText, "":
		return Text{}, nil
	default:
		return nil, fmt.Errorf("unknown kind %q", ff.Kind)
	}
}

// #endregion load
