package schema

import "regexp"

// Field keys of the built-in cargo schema.
const (
	KeyName            = "name"
	KeyLength          = "length"
	KeyWidth           = "width"
	KeyHeight          = "height"
	KeyWeight          = "weight"
	KeyQuantity        = "quantity"
	KeyFragility       = "fragility"
	KeyLoadBear        = "loadBear"
	KeyBoxingType      = "boxingType"
	KeyBundle          = "bundle"
	KeyTempSensitivity = "tempSensitivity"
)

// TempSensitivityPattern accepts ranges such as "10°C to 30°C".
var TempSensitivityPattern = regexp.MustCompile(`^-?\d+°C to -?\d+°C$`)

// Cargo returns the cargo manifest schema used by the editor by default.
func Cargo() *Schema {
	dimension := Numeric{Min: Bound(0.01), Max: Bound(50), Unit: "m"}
	return MustNew(KeyName,
		Field{Key: KeyName, Label: "Name", Required: true, Constraint: Text{}},
		Field{Key: KeyLength, Label: "Length (m)", Required: true, Constraint: dimension},
		Field{Key: KeyWidth, Label: "Width (m)", Required: true, Constraint: dimension},
		Field{Key: KeyHeight, Label: "Height (m)", Required: true, Constraint: dimension},
		Field{Key: KeyWeight, Label: "Weight (kg)", Required: true,
			Constraint: Numeric{Min: Bound(0.1), Max: Bound(40000), Unit: "kg"}},
		Field{Key: KeyQuantity, Label: "Quantity", Required: true,
			Constraint: Numeric{Min: Bound(1), Max: Bound(10000), Integer: true}},
		Field{Key: KeyFragility, Label: "Fragility", Required: true, AIAssisted: true,
			Constraint: Enum{Allowed: []string{"LOW", "MEDIUM", "HIGH"}}},
		Field{Key: KeyLoadBear, Label: "LoadBear (kg)", Required: true, AIAssisted: true,
			Constraint: Numeric{Min: Bound(0), Max: Bound(100000), Unit: "kg"}},
		Field{Key: KeyBoxingType, Label: "BoxingType", Required: true,
			Constraint: Enum{Allowed: []string{"BOX", "PALLET", "LOOSE", "CONTAINER", "CRATE"}}},
		Field{Key: KeyBundle, Label: "Bundle", Required: true,
			Constraint: Enum{Allowed: []string{"YES", "NO"}}},
		Field{Key: KeyTempSensitivity, Label: "Temperature Sensitivity", Required: true, AIAssisted: true,
			Constraint: Pattern{Expr: TempSensitivityPattern, Hint: "format: 10°C to 30°C"}},
	)
}
