package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"botwatch/internal/core/domain"
	"botwatch/internal/infra/storage"
)

// ProjectRepo implements storage.ProjectRepository using PostgreSQL.
type ProjectRepo struct {
	db *DB
}

// NewProjectRepo creates a new PostgreSQL project repository.
func NewProjectRepo(db *DB) *ProjectRepo {
	return &ProjectRepo{db: db}
}

type projectRow struct {
	ID                  string    `db:"id"`
	Name                string    `db:"name"`
	ParentWalletAddress string    `db:"parent_wallet_address"`
	Status              string    `db:"status"`
	CreatedAt           time.Time `db:"created_at"`
}

func (p *projectRow) toDomain() *domain.Project {
	return &domain.Project{
		ID:                  p.ID,
		Name:                p.Name,
		ParentWalletAddress: p.ParentWalletAddress,
		Status:              domain.ProjectStatus(p.Status),
		CreatedAt:           p.CreatedAt,
	}
}

// Create inserts a new project.
func (r *ProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	query := `
		INSERT INTO projects (id, name, parent_wallet_address, status, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Name, p.ParentWalletAddress, string(p.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// GetByID retrieves a project by id.
func (r *ProjectRepo) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	query := `SELECT id, name, parent_wallet_address, status, created_at FROM projects WHERE id = $1`

	var row projectRow
	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return row.toDomain(), nil
}

// GetAll retrieves all projects.
func (r *ProjectRepo) GetAll(ctx context.Context) ([]*domain.Project, error) {
	query := `SELECT id, name, parent_wallet_address, status, created_at FROM projects ORDER BY created_at`

	var rows []projectRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	projects := make([]*domain.Project, 0, len(rows))
	for i := range rows {
		projects = append(projects, rows[i].toDomain())
	}
	return projects, nil
}

// UpdateStatus sets the project status.
func (r *ProjectRepo) UpdateStatus(ctx context.Context, id string, status domain.ProjectStatus) error {
	query := `UPDATE projects SET status = $1 WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrProjectNotFound
	}
	return nil
}

// Delete removes a project.
func (r *ProjectRepo) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM projects WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrProjectNotFound
	}
	return nil
}
