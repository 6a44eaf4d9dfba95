package postgres

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"gatekeeper/internal/domain/entity"
	domainerrors "gatekeeper/internal/domain/errors"
	"gatekeeper/internal/domain/repository"
	"gatekeeper/internal/infra/persistence/model"
)

// socialConnectionRepository implements the domain.SocialConnectionRepository interface using GORM.
type socialConnectionRepository struct {
	db *gorm.DB
}

// NewSocialConnectionRepository is the constructor for socialConnectionRepository.
func NewSocialConnectionRepository(db *gorm.DB) repository.SocialConnectionRepository {
	return &socialConnectionRepository{db: db}
}

// FindByUserAndProvider retrieves the connection linking a user to a provider.
func (repo *socialConnectionRepository) FindByUserAndProvider(ctx context.Context, userID uuid.UUID, provider entity.SocialProvider) (*entity.SocialConnection, error) {
	var connM model.SocialConnectionModel
	if err := repo.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, string(provider)).
		First(&connM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrConnectionNotFound
		}

		return nil, errors.Wrap(err, "failed to find social connection by user and provider")
	}

	return toSocialConnectionDomain(&connM), nil
}

// FindByProviderUserID retrieves the connection for an external provider account.
func (repo *socialConnectionRepository) FindByProviderUserID(ctx context.Context, provider entity.SocialProvider, providerUserID string) (*entity.SocialConnection, error) {
	var connM model.SocialConnectionModel
	if err := repo.db.WithContext(ctx).
		Where("provider = ? AND provider_user_id = ?", string(provider), providerUserID).
		First(&connM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrConnectionNotFound
		}

		return nil, errors.Wrap(err, "failed to find social connection by provider account")
	}

	return toSocialConnectionDomain(&connM), nil
}

// FindByUserID retrieves all social connections for a user.
func (repo *socialConnectionRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.SocialConnection, error) {
	var connModels []*model.SocialConnectionModel
	if err := repo.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&connModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find social connections by user id")
	}

	conns := make([]*entity.SocialConnection, 0, len(connModels))
	for _, connM := range connModels {
		conns = append(conns, toSocialConnectionDomain(connM))
	}

	return conns, nil
}

// Create persists a new social connection.
func (repo *socialConnectionRepository) Create(ctx context.Context, conn *entity.SocialConnection) error {
	connM := fromSocialConnectionDomain(conn)

	if err := repo.db.WithContext(ctx).Create(connM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return repository.ErrConnectionExists
		}
		if isForeignKeyConstraintViolation(err) {
			return domainerrors.ErrUserNotFound.WrapMessage("invalid user reference")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create social connection")
	}

	conn.ID = connM.ID
	conn.CreatedAt = connM.CreatedAt
	conn.UpdatedAt = connM.UpdatedAt

	return nil
}

// Delete removes a connection by its ID (unlink).
func (repo *socialConnectionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := repo.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.SocialConnectionModel{})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete social connection")
	}

	if result.RowsAffected == 0 {
		return repository.ErrConnectionNotFound
	}

	return nil
}

// --- Mapper Functions ---

// toSocialConnectionDomain converts a GORM SocialConnectionModel to a domain entity.
func toSocialConnectionDomain(data *model.SocialConnectionModel) *entity.SocialConnection {
	if data == nil {
		return nil
	}

	return &entity.SocialConnection{
		ID:             data.ID,
		UserID:         data.UserID,
		Provider:       entity.SocialProvider(data.Provider),
		ProviderUserID: data.ProviderUserID,
		ProfileData:    json.RawMessage(data.ProfileData),
		CreatedAt:      data.CreatedAt,
		UpdatedAt:      data.UpdatedAt,
	}
}

// fromSocialConnectionDomain converts a domain entity to a GORM SocialConnectionModel.
func fromSocialConnectionDomain(data *entity.SocialConnection) *model.SocialConnectionModel {
	if data == nil {
		return nil
	}

	return &model.SocialConnectionModel{
		ID:             data.ID,
		UserID:         data.UserID,
		Provider:       string(data.Provider),
		ProviderUserID: data.ProviderUserID,
		ProfileData:    datatypes.JSON(data.ProfileData),
		CreatedAt:      data.CreatedAt,
		UpdatedAt:      data.UpdatedAt,
	}
}
