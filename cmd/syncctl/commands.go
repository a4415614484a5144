package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"www.github.com/Wanderer0074348/EventSync/src/auth"
	"www.github.com/Wanderer0074348/EventSync/src/cache"
	"www.github.com/Wanderer0074348/EventSync/src/calendar"
	"www.github.com/Wanderer0074348/EventSync/src/models"
	"www.github.com/Wanderer0074348/EventSync/src/reconcile"
	"www.github.com/Wanderer0074348/EventSync/src/store"
	"www.github.com/Wanderer0074348/EventSync/src/utils"
)

// grantHolder is the slice of the grant store the CLI needs.
type grantHolder interface {
	HasGrant(ctx context.Context, ownerID string) (bool, error)
	Revoke(ctx context.Context, ownerID string) error
}

type userRepository interface {
	GetUser(ctx context.Context, userID string) (*auth.User, error)
	SaveUser(ctx context.Context, user *auth.User) error
}

type app struct {
	store   models.EventStore
	puller  models.Puller
	grants  grantHolder
	users   userRepository
	closers []func() error
}

func newApp(cfg *Config) (*app, error) {
	redisCache, err := cache.NewRedisCache(cfg.redis())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.RedisAddress, err)
	}

	db, err := cache.OpenSQLite(cfg.DatabasePath)
	if err != nil {
		redisCache.Close()
		return nil, err
	}

	googleCfg := cfg.google()
	grants := auth.NewGrantStore(db, auth.NewGoogleOAuthConfig(googleCfg), googleCfg.RevokeURL)
	eventStore := store.NewEventStore(redisCache.GetClient())
	syncCfg := cfg.sync()
	reconciler := reconcile.NewReconciler(
		eventStore,
		calendar.NewGoogleClient(grants, googleCfg),
		reconcile.NewDefaultPushPolicy(syncCfg),
		syncCfg,
	)

	return &app{
		store:   eventStore,
		puller:  reconciler,
		grants:  grants,
		users:   auth.NewUserStore(redisCache.GetClient()),
		closers: []func() error{db.Close, redisCache.Close},
	}, nil
}

func (a *app) Close() error {
	var errs []error
	for _, closer := range a.closers {
		errs = append(errs, closer())
	}
	return errors.Join(errs...)
}

func (a *app) pull(ctx context.Context, userID string) error {
	result, err := a.puller.PullOnce(ctx, userID)
	if err != nil {
		return err
	}
	printVerbosely(1, "Pulled for %s: %d created, %d updated, %d deleted\n",
		userID, result.Created, result.Updated, result.Deleted)
	return nil
}

func (a *app) list(ctx context.Context, userID string) error {
	events, err := a.store.Query(ctx, userID, models.EventFilter{})
	if err != nil {
		return err
	}
	utils.SortByStart(events)

	printVerbosely(1, "%d events for %s\n", len(events), userID)
	for _, event := range events {
		origin := "local"
		if event.IsExternalEvent {
			origin = "google:" + event.ExternalEventID
		}
		printVerbosely(2, "  %s  %s - %s  %s (%s)\n",
			event.ID,
			event.Start.Format(time.RFC3339),
			event.End.Format(time.RFC3339),
			event.Title,
			origin,
		)
	}
	return nil
}

func (a *app) export(ctx context.Context, userID, target string) error {
	events, err := a.store.Query(ctx, userID, models.EventFilter{})
	if err != nil {
		return err
	}
	utils.SortByStart(events)

	feed := calendar.ExportICS("EventSync", events, time.Now())
	if target == "" {
		fmt.Print(feed)
		return nil
	}
	if err := os.WriteFile(target, []byte(feed), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	printVerbosely(1, "Exported %d events to %s\n", len(events), target)
	return nil
}

// unlink revokes the Google grant and clears the linked flag on the user.
func (a *app) unlink(ctx context.Context, userID string) error {
	revokeErr := a.grants.Revoke(ctx, userID)

	user, err := a.users.GetUser(ctx, userID)
	if errors.Is(err, models.ErrUserNotFound) {
		return revokeErr
	}
	if err != nil {
		return errors.Join(revokeErr, err)
	}

	user.GoogleLinked = false
	user.UpdatedAt = time.Now()
	if err := a.users.SaveUser(ctx, user); err != nil {
		return errors.Join(revokeErr, err)
	}

	if revokeErr == nil {
		printVerbosely(1, "Unlinked Google Calendar for %s\n", userID)
	}
	return revokeErr
}

func (a *app) status(ctx context.Context, userID string) error {
	linked, err := a.grants.HasGrant(ctx, userID)
	if err != nil {
		return err
	}

	all, err := a.store.Query(ctx, userID, models.EventFilter{})
	if err != nil {
		return err
	}
	external := 0
	for _, event := range all {
		if event.IsExternalEvent {
			external++
		}
	}

	fmt.Printf("user:     %s\n", userID)
	fmt.Printf("linked:   %t\n", linked)
	fmt.Printf("events:   %d (%d from Google Calendar)\n", len(all), external)
	return nil
}
