// README: Agent availability service.
package agent

import (
	"context"

	"github.com/sirupsen/logrus"

	"dispatch/internal/types"
)

type Service struct {
	store *Store
	log   *logrus.Logger
}

func NewService(store *Store, log *logrus.Logger) *Service {
	return &Service{store: store, log: log}
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Agent, error) {
	return s.store.Get(ctx, id)
}

// SetAvailability flips the online flag. Offline agents are skipped by
// matching and rejected by the assignment coordinator.
func (s *Service) SetAvailability(ctx context.Context, id types.ID, online bool) error {
	if err := s.store.SetOnline(ctx, id, online); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{
		"agent_id": id,
		"online":   online,
	}).Info("agent availability changed")
	return nil
}
