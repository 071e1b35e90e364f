package directory

import "github.com/google/uuid"

// EmployeeRow is the projection read from employees joined with departments
// and roles.
type EmployeeRow struct {
	ID         uuid.UUID
	FullName   string
	Email      string
	Department string
	Role       string
}

// Employee is the identity snapshot the leave lifecycle needs: enough to
// denormalize requester fields and address a notification.
type Employee struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
	Role       string `json:"role"`
}

func mapRow(r EmployeeRow) Employee {
	return Employee{
		ID:         r.ID.String(),
		Name:       r.FullName,
		Email:      r.Email,
		Department: r.Department,
		Role:       r.Role,
	}
}
