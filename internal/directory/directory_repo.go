package directory

import (
	"context"

	"gorm.io/gorm"
)

//go:generate mockgen -source=directory_repo.go -destination=mock/directory_repo_mock.go -package=mock
type Repository interface {
	FindByID(ctx context.Context, id string) (*EmployeeRow, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByID(ctx context.Context, id string) (*EmployeeRow, error) {
	var row EmployeeRow
	err := r.db.WithContext(ctx).
		Table("employees AS e").
		Select(`e.id, e.full_name, e.email,
			COALESCE(d.name, '') AS department,
			COALESCE(r.name, '') AS role`).
		Joins("LEFT JOIN departments d ON d.id = e.department_id AND d.deleted_at IS NULL").
		Joins("LEFT JOIN employee_roles er ON er.employee_id = e.id").
		Joins("LEFT JOIN roles r ON r.id = er.role_id").
		Where("e.id = ?", id).
		Where("e.deleted_at IS NULL").
		Order("r.name ASC").
		Limit(1).
		Take(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}
