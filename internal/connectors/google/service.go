package google

import (
	"context"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// NewCalendarService creates a Google Calendar API service using the provided TokenSource.
func NewCalendarService(ctx context.Context, ts oauth2.TokenSource, opts ...option.ClientOption) (*calendar.Service, error) {
	return calendar.NewService(ctx, append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)...)
}

// NewYouTubeService creates a YouTube Data API service using the provided TokenSource.
func NewYouTubeService(ctx context.Context, ts oauth2.TokenSource, opts ...option.ClientOption) (*youtube.Service, error) {
	return youtube.NewService(ctx, append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)...)
}
