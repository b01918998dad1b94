package paymenttype

import "strings"

type Type struct {
	Name string
}

func (t Type) Code() string {
	return t.Name
}

func (t Type) Label() string {
	if len(t.Name) == 0 {
		return ""
	}
	return strings.ToUpper(t.Name[:1]) + t.Name[1:]
}

type Enum struct {
	Cash Type
	Card Type
	QR   Type
	Bank Type
}

var Types = Enum{
	Cash: Type{Name: "cash"},
	Card: Type{Name: "card"},
	QR:   Type{Name: "qr"},
	Bank: Type{Name: "bank"},
}

var All = []Type{
	Types.Cash,
	Types.Card,
	Types.QR,
	Types.Bank,
}

// ByName returns the payment type for a given name, or nil if not found
func ByName(name string) *Type {
	for _, t := range All {
		if t.Name == name {
			return &t
		}
	}
	return nil
}
