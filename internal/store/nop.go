package store

import (
	"time"

	"github.com/amishk599/jobradar/internal/model"
)

// NopStore is a no-op backend used in dry-run mode. Nothing persists, so
// every run sees every job as new and every breaker starts closed.
type NopStore struct{}

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) FindByHash(hash string) (*model.Job, error)      { return nil, nil }
func (s *NopStore) UpsertJobs(jobs []model.Job) error               { return nil }
func (s *NopStore) RecentJobs(limit int) ([]model.Job, error)       { return nil, nil }
func (s *NopStore) LoadCooldowns() (map[string]time.Time, error)    { return nil, nil }
func (s *NopStore) SaveCooldown(string, time.Time) error            { return nil }
func (s *NopStore) Close() error                                    { return nil }
