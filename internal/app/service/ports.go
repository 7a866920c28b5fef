package service

import (
	"context"

	"trackmeet/internal/domain/model"
)

// EventCache holds the public event list between mutations. GetEvents reports the
// cache generation on a miss; SetEvents drops the list if Invalidate ran since.
type EventCache interface {
	GetEvents(ctx context.Context) ([]model.Event, int64, bool)
	SetEvents(ctx context.Context, generation int64, events []model.Event)
	Invalidate(ctx context.Context)
}

// AnnouncementPublisher hands committed result announcements to the notification worker.
type AnnouncementPublisher interface {
	Publish(ctx context.Context, a model.Announcement) error
}

type nopEventCache struct{}

func (nopEventCache) GetEvents(context.Context) ([]model.Event, int64, bool) { return nil, 0, false }
func (nopEventCache) SetEvents(context.Context, int64, []model.Event)       {}
func (nopEventCache) Invalidate(context.Context)                            {}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, model.Announcement) error { return nil }
