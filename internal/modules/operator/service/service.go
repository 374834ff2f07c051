package service

import (
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/reshetovitsme/relaybot/internal/modules/operator/domain"
	"github.com/reshetovitsme/relaybot/internal/modules/operator/repository"
	"github.com/samber/lo"
)

// Service decides who may run bot commands
type Service struct {
	repo    repository.Repository
	allowed []int64
	clock   clockwork.Clock
}

// New creates a new operator service. allowed is the configured allow list.
func New(repo repository.Repository, allowed []int64, clock clockwork.Clock) *Service {
	return &Service{
		repo:    repo,
		allowed: allowed,
		clock:   clock,
	}
}

// IsAuthorized reports whether a user may run commands. With a configured
// allow list only listed users pass. Without one, stored operators pass.
func (s *Service) IsAuthorized(userID int64) bool {
	if len(s.allowed) > 0 {
		return lo.Contains(s.allowed, userID)
	}
	_, err := s.repo.GetOperator(userID)
	return err == nil
}

// Bootstrap registers the first user to talk to the bot as admin when no
// allow list is configured and nobody has been registered yet.
func (s *Service) Bootstrap(userID int64, username string) bool {
	if len(s.allowed) > 0 {
		return false
	}
	operators, err := s.repo.GetAllOperators()
	if err != nil {
		slog.Error("Failed to load operators", "error", err)
		return false
	}
	if len(operators) > 0 {
		return false
	}

	operator := &domain.Operator{
		ID:       userID,
		Username: username,
		AddedAt:  s.clock.Now().Truncate(time.Second),
		IsAdmin:  true,
	}
	if err := s.repo.SaveOperator(operator); err != nil {
		slog.Error("Failed to save operator", "error", err, "operator_id", userID)
		return false
	}
	slog.Info("Registered first operator", "operator_id", userID, "username", username)
	return true
}

func (s *Service) Operators() ([]*domain.Operator, error) {
	return s.repo.GetAllOperators()
}
