package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/apexlearn/training-admin-api/internal/models"
)

// OfferingRepository reads course offering records.
type OfferingRepository struct {
	db *sqlx.DB
}

// NewOfferingRepository constructs the repository.
func NewOfferingRepository(db *sqlx.DB) *OfferingRepository {
	return &OfferingRepository{db: db}
}

// FindByID returns a course offering by its ID.
func (r *OfferingRepository) FindByID(ctx context.Context, id string) (*models.CourseOffering, error) {
	const query = `SELECT id, title, max_participants, starts_at, created_at FROM course_offerings WHERE id = $1`
	var offering models.CourseOffering
	if err := r.db.GetContext(ctx, &offering, query, id); err != nil {
		return nil, err
	}
	return &offering, nil
}
