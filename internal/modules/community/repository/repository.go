package repository

import (
	"github.com/reshetovitsme/relaybot/internal/modules/community/domain"
)

// Repository defines the interface for community config persistence
type Repository interface {
	SaveCommunity(community *domain.Community) error
	GetCommunity(communityID string) (*domain.Community, error)
	GetAllCommunities() ([]*domain.Community, error)
}
