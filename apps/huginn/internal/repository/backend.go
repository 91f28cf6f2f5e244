package repository

import "huginn/apps/huginn/internal/model"

// Backend is the durable medium behind the subscription repository. Save always receives the
// complete store and must replace the previous snapshot as a whole.
type Backend interface {
	Load() ([]*model.Subscriber, error)
	Save(subscribers []*model.Subscriber) error
}
