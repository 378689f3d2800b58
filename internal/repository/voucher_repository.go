package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cityperks/service-redemption/internal/domain"
	voucherDomain "github.com/cityperks/service-redemption/internal/domain/voucher"
	"gorm.io/gorm"
)

// VoucherModel is the GORM persistence model for the vouchers table.
type VoucherModel struct {
	VoucherID      string     `gorm:"type:varchar(64);primaryKey"`
	Title          string     `gorm:"type:varchar(255)"`
	ProviderID     string     `gorm:"type:varchar(64);index"`
	Status         string     `gorm:"type:varchar(20);not null;default:'active'"`
	ExpirationDate *time.Time `gorm:"type:date"`
	CreatedAt      time.Time  `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt      time.Time  `gorm:"type:timestamptz;not null;default:now()"`
}

// TableName specifies the table name for GORM.
func (VoucherModel) TableName() string {
	return "vouchers"
}

// GormVoucherRepository is the GORM-based implementation of voucher.Repository.
type GormVoucherRepository struct {
	db *gorm.DB
}

// NewGormVoucherRepository creates a new GORM-based voucher repository.
func NewGormVoucherRepository(db *gorm.DB) *GormVoucherRepository {
	return &GormVoucherRepository{db: db}
}

// Save persists a new voucher.
func (r *GormVoucherRepository) Save(ctx context.Context, v *voucherDomain.Voucher) error {
	model := toVoucherModel(v)
	return r.db.WithContext(ctx).Create(&model).Error
}

// FindByID retrieves a voucher by its ID.
func (r *GormVoucherRepository) FindByID(ctx context.Context, id string) (*voucherDomain.Voucher, error) {
	var model VoucherModel
	if err := r.db.WithContext(ctx).Where("voucher_id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Voucher", id)
		}
		return nil, err
	}
	return toVoucherDomain(&model)
}

// FindActive returns all vouchers currently in the active state.
func (r *GormVoucherRepository) FindActive(ctx context.Context) ([]*voucherDomain.Voucher, error) {
	var models []VoucherModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(voucherDomain.StatusActive)).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}

	vouchers := make([]*voucherDomain.Voucher, 0, len(models))
	for i := range models {
		v, err := toVoucherDomain(&models[i])
		if err != nil {
			return nil, err
		}
		vouchers = append(vouchers, v)
	}
	return vouchers, nil
}

// toVoucherModel maps a domain Voucher to its persistence model.
func toVoucherModel(v *voucherDomain.Voucher) VoucherModel {
	return VoucherModel{
		VoucherID:      v.ID(),
		Title:          v.Title(),
		ProviderID:     v.ProviderID(),
		Status:         string(v.Status()),
		ExpirationDate: v.ExpiresOn(),
		CreatedAt:      v.CreatedAt(),
		UpdatedAt:      v.UpdatedAt(),
	}
}

// toVoucherDomain maps a VoucherModel to the domain aggregate. A status
// outside the closed enumeration is a data-integrity error.
func toVoucherDomain(m *VoucherModel) (*voucherDomain.Voucher, error) {
	status, err := voucherDomain.ParseStatus(m.Status)
	if err != nil {
		return nil, domain.NewDataIntegrityError(err.Error())
	}
	return voucherDomain.Reconstruct(
		m.VoucherID, m.Title, m.ProviderID, status,
		m.ExpirationDate, m.CreatedAt, m.UpdatedAt,
	), nil
}
