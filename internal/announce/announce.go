// Package announce presents already-granted rewards to players one item at
// a time. Announcers only read; every grant has been applied before an
// announcement starts.
package announce

import (
	"context"
	"time"

	"arrodes-economy/internal/logging"

	"github.com/rs/zerolog"
)

// Announcement is a finalized reward list for one user.
type Announcement struct {
	User  string   `json:"user"`
	Title string   `json:"title"`
	Items []string `json:"items"`
}

// Reveal is one step of an announcement.
type Reveal struct {
	Type  string `json:"type"`
	User  string `json:"user"`
	Title string `json:"title"`
	Item  string `json:"item,omitempty"`
	Index int    `json:"index"`
	Total int    `json:"total"`
}

// Reveal types.
const (
	RevealItem = "reveal"
	RevealDone = "done"
)

// Announcer paces an announcement. Implementations stop early and return
// ctx.Err() when ctx is cancelled.
type Announcer interface {
	Announce(ctx context.Context, a Announcement) error
}

// Steps expands a into the reveals to emit, ending with a done marker.
func Steps(a Announcement) []Reveal {
	out := make([]Reveal, 0, len(a.Items)+1)
	for i, item := range a.Items {
		out = append(out, Reveal{Type: RevealItem, User: a.User, Title: a.Title, Item: item, Index: i, Total: len(a.Items)})
	}
	return append(out, Reveal{Type: RevealDone, User: a.User, Title: a.Title, Index: len(a.Items), Total: len(a.Items)})
}

// pace calls emit for each step, waiting delay between steps.
func pace(ctx context.Context, a Announcement, delay time.Duration, emit func(Reveal)) error {
	steps := Steps(a)
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		emit(step)
		if i == len(steps)-1 || delay <= 0 {
			continue
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}

// LogAnnouncer writes each reveal to a logger.
type LogAnnouncer struct {
	log   zerolog.Logger
	delay time.Duration
}

// NewLogAnnouncer returns an announcer logging reveals delay apart.
func NewLogAnnouncer(logger zerolog.Logger, delay time.Duration) *LogAnnouncer {
	return &LogAnnouncer{log: logging.Component(logger, "announce"), delay: delay}
}

func (l *LogAnnouncer) Announce(ctx context.Context, a Announcement) error {
	return pace(ctx, a, l.delay, func(r Reveal) {
		if r.Type == RevealDone {
			l.log.Info().Str("user", r.User).Str("title", r.Title).Int("items", r.Total).Msg("reward revealed")
			return
		}
		l.log.Debug().Str("user", r.User).Str("item", r.Item).Int("index", r.Index).Msg("reveal")
	})
}
