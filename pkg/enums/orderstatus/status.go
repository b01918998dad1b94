package orderstatus

import "strings"

type Status struct {
	Name string
}

func (s Status) Code() string {
	return s.Name
}

func (s Status) Label() string {
	if len(s.Name) == 0 {
		return ""
	}
	return strings.ToUpper(s.Name[:1]) + s.Name[1:]
}

type Enum struct {
	Pending   Status
	Completed Status
	Cancelled Status
	Refunded  Status
}

var Statuses = Enum{
	Pending:   Status{Name: "pending"},
	Completed: Status{Name: "completed"},
	Cancelled: Status{Name: "cancelled"},
	Refunded:  Status{Name: "refunded"},
}

var All = []Status{
	Statuses.Pending,
	Statuses.Completed,
	Statuses.Cancelled,
	Statuses.Refunded,
}

// ByName returns the status for a given name, or nil if not found
func ByName(name string) *Status {
	for _, s := range All {
		if s.Name == name {
			return &s
		}
	}
	return nil
}

// Terminal reports whether the order can no longer take new mutations.
func (s Status) Terminal() bool {
	return s.Name == Statuses.Cancelled.Name || s.Name == Statuses.Refunded.Name
}
