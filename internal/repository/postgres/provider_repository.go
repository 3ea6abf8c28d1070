package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/provider"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/schedule"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProviderRepository struct {
	db *gorm.DB
}

func NewProviderRepository(db *gorm.DB) *ProviderRepository {
	return &ProviderRepository{db: db}
}

func (r *ProviderRepository) GetByID(ctx context.Context, id uuid.UUID) (*provider.Provider, error) {
	var p provider.Provider
	err := r.db.WithContext(ctx).Where("id = ? AND deleted_at IS NULL", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, provider.ErrProviderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading provider %s: %w", id, err)
	}
	return &p, nil
}

func (r *ProviderRepository) List(ctx context.Context, q *provider.ListProvidersQuery) ([]*provider.Provider, error) {
	tx := r.db.WithContext(ctx).Where("deleted_at IS NULL")
	if s := strings.TrimSpace(q.Specialty); s != "" {
		tx = tx.Where("LOWER(specialty) = LOWER(?)", s)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		tx = tx.Where("name ILIKE ?", "%"+s+"%")
	}

	var out []*provider.Provider
	if err := tx.Order("name ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("listing providers: %w", err)
	}
	return out, nil
}

func (r *ProviderRepository) Specialties(ctx context.Context) ([]string, error) {
	var out []string
	err := r.db.WithContext(ctx).
		Model(&provider.Provider{}).
		Where("deleted_at IS NULL AND specialty <> ''").
		Distinct("specialty").
		Order("specialty ASC").
		Pluck("specialty", &out).Error
	if err != nil {
		return nil, fmt.Errorf("listing specialties: %w", err)
	}
	return out, nil
}

func (r *ProviderRepository) UpdateSchedule(ctx context.Context, id uuid.UUID, s schedule.WeeklySchedule) error {
	return r.setJSON(ctx, id, "schedule", s)
}

func (r *ProviderRepository) UpdateAbsences(ctx context.Context, id uuid.UUID, absences []schedule.AbsencePeriod) error {
	return r.setJSON(ctx, id, "absences", absences)
}

func (r *ProviderRepository) setJSON(ctx context.Context, id uuid.UUID, column string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", column, err)
	}
	res := r.db.WithContext(ctx).Exec(
		"UPDATE scheduling.providers SET "+column+" = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL",
		string(raw), time.Now().UTC(), id,
	)
	if res.Error != nil {
		return fmt.Errorf("updating provider %s: %w", column, res.Error)
	}
	if res.RowsAffected == 0 {
		return provider.ErrProviderNotFound
	}
	return nil
}
