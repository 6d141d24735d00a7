package services

import (
	"errors"
	"log"

	"github.com/studydeck/studydeck/internal/models"
	"github.com/studydeck/studydeck/internal/types"
	"gorm.io/gorm"
)

// UserUpsertInput carries identity provider profile data for
// provisioning. Plan is optional; empty leaves the stored plan alone.
type UserUpsertInput struct {
	ExternalID string
	Email      string
	FirstName  string
	LastName   string
	Plan       string
}

// UpsertUserByExternalID creates or updates the local user row for one
// external identity. This is the single provisioning path shared by the
// identity webhook and just-in-time provisioning, so both produce
// identical rows.
func UpsertUserByExternalID(db *gorm.DB, in UserUpsertInput) (*models.User, *types.ServiceError) {
	if in.ExternalID == "" {
		return nil, types.NewValidationError(map[string][]string{
			"externalId": {"external id is required"},
		})
	}

	var user models.User
	err := db.Where("external_id = ?", in.ExternalID).First(&user).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			ExternalID: in.ExternalID,
			Email:      in.Email,
			FirstName:  in.FirstName,
			LastName:   in.LastName,
			Plan:       models.PlanFree,
		}
		if in.Plan != "" {
			user.Plan = in.Plan
		}
		if err := db.Create(&user).Error; err != nil {
			log.Printf("Failed to create user for external id %s: %v", in.ExternalID, err)
			return nil, types.NewServiceError(types.ErrPersistence, "Failed to provision user")
		}

	case err != nil:
		log.Printf("Failed to look up user for external id %s: %v", in.ExternalID, err)
		return nil, types.NewServiceError(types.ErrPersistence, "Failed to provision user")

	default:
		updates := map[string]interface{}{
			"email":      in.Email,
			"first_name": in.FirstName,
			"last_name":  in.LastName,
		}
		if in.Plan != "" {
			updates["plan"] = in.Plan
		}
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			log.Printf("Failed to update user for external id %s: %v", in.ExternalID, err)
			return nil, types.NewServiceError(types.ErrPersistence, "Failed to provision user")
		}
	}

	return &user, nil
}

// DeleteUserByExternalID removes the local user row; decks, cards and
// study sessions follow through the store-level cascade. Deleting an
// unknown external id is a no-op.
func DeleteUserByExternalID(db *gorm.DB, externalID string) *types.ServiceError {
	if externalID == "" {
		return types.NewValidationError(map[string][]string{
			"externalId": {"external id is required"},
		})
	}

	if err := db.Where("external_id = ?", externalID).Delete(&models.User{}).Error; err != nil {
		log.Printf("Failed to delete user for external id %s: %v", externalID, err)
		return types.NewServiceError(types.ErrPersistence, "Failed to delete user")
	}

	return nil
}

// ResolveUser finds the local user row for the calling identity.
// Absence is a deferred-provisioning case for the caller to handle.
func ResolveUser(db *gorm.DB, externalID string) (*models.User, *types.ServiceError) {
	if externalID == "" {
		return nil, types.NewServiceError(types.ErrUnauthenticated, "Unauthorized")
	}

	var user models.User
	if err := db.Where("external_id = ?", externalID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NewServiceError(types.ErrUserNotFound, "User not found")
		}
		return nil, types.NewServiceError(types.ErrPersistence, "Failed to resolve user")
	}

	return &user, nil
}

// EnsureUser resolves the calling identity's user row, provisioning it
// just-in-time from the identity profile on first authenticated access.
func EnsureUser(db *gorm.DB, ident *Identity) (*models.User, *types.ServiceError) {
	if ident == nil || ident.ExternalID == "" {
		return nil, types.NewServiceError(types.ErrUnauthenticated, "Unauthorized")
	}

	user, serr := ResolveUser(db, ident.ExternalID)
	if serr == nil {
		return user, nil
	}
	if serr.Kind != types.ErrUserNotFound {
		return nil, serr
	}

	return UpsertUserByExternalID(db, UserUpsertInput{
		ExternalID: ident.ExternalID,
		Email:      ident.Email,
		FirstName:  ident.FirstName,
		LastName:   ident.LastName,
	})
}
