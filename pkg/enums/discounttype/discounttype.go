package discounttype

import "strings"

type Type struct {
	Name string
}

func (t Type) Code() string {
	return t.Name
}

func (t Type) Label() string {
	parts := strings.Split(t.Name, "_")
	for i := range parts {
		if len(parts[i]) > 0 {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, " ")
}

type Enum struct {
	None        Type
	Percentage  Type
	FixedAmount Type
}

var Types = Enum{
	None:        Type{Name: "none"},
	Percentage:  Type{Name: "percentage"},
	FixedAmount: Type{Name: "fixed_amount"},
}

var All = []Type{
	Types.None,
	Types.Percentage,
	Types.FixedAmount,
}

// ByName returns the discount type for a given name, or nil if not found
func ByName(name string) *Type {
	for _, t := range All {
		if t.Name == name {
			return &t
		}
	}
	return nil
}
