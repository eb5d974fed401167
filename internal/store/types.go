package store

// Page selects a window of a newest-first list.
type Page struct {
	Offset int
	Limit  int
}

// NewMachine carries the fields accepted when registering a machine. The
// public slug is always generated by the store.
type NewMachine struct {
	Name         string
	SerialNumber *string
	Location     *string
	Description  *string
}

// MachineUpdate is a partial update: nil fields are left untouched and an
// empty string clears an optional field.
type MachineUpdate struct {
	Name         *string
	SerialNumber *string
	Location     *string
	Description  *string
}

// NewEmployee carries the fields accepted when creating an employee.
type NewEmployee struct {
	FirstName    string
	LastName     string
	Email        string
	Phone        *string
	Department   *string
	Position     *string
	EmployeeCode string
}

// EmployeeUpdate is a partial update with the same nil/empty semantics as
// MachineUpdate. Status is changed through SetEmployeeStatus only.
type EmployeeUpdate struct {
	FirstName    *string
	LastName     *string
	Email        *string
	Phone        *string
	Department   *string
	Position     *string
	EmployeeCode *string
}

// EmployeeFilter narrows employee listings.
type EmployeeFilter struct {
	IncludeInactive bool
}
