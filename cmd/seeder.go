package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/Merchously/iRun/internal"
	"github.com/Merchously/iRun/internal/auth"
	authPostgres "github.com/Merchously/iRun/internal/auth/postgres"
	eventDatamodel "github.com/Merchously/iRun/internal/core/datamodel/event"
	"github.com/Merchously/iRun/internal/core/events"
	"github.com/Merchously/iRun/internal/event"
	"github.com/Merchously/iRun/internal/permission"
	"github.com/Merchously/iRun/internal/user"
	"github.com/Merchously/iRun/pkg/logger"
)

const (
	seedAdminEmail      = "admin@irun.local"
	seedEditorEmail     = "editor@irun.local"
	seedRunnerEmail     = "runner@irun.local"
	seedPasswordEnv     = "SEED_PASSWORD"
	seedDefaultPassword = "irun-dev-password"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with staff accounts and a handful of published events for development.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()
		gdb, err := initGorm(db)
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		svc := newServices(cfg, db, gdb, logger.LoggerWrapper())
		ctx := context.Background()
		defer func() { _ = svc.Bus.Drain(ctx) }()

		if clearData {
			if err := clearCatalog(ctx, gdb); err != nil {
				log.Fatalf("failed to clear catalog: %v", err)
			}
			fmt.Println("Cleared events, distances and saves")
		}

		password := os.Getenv(seedPasswordEnv)
		if password == "" {
			password = seedDefaultPassword
		}

		accounts := authPostgres.NewRepository(gdb)
		adminID := ensureAccount(ctx, svc.Auth, accounts, svc.Users, seedAdminEmail, "iRun Admin", password, permission.RoleAdmin)
		ensureAccount(ctx, svc.Auth, accounts, svc.Users, seedEditorEmail, "Catalog Editor", password, permission.RoleEditor)
		ensureAccount(ctx, svc.Auth, accounts, svc.Users, seedRunnerEmail, "Sample Runner", password, permission.RoleRunner)

		for _, s := range sampleEvents(time.Now().UTC()) {
			e, err := svc.Events.CreateEvent(ctx, adminID, s.input, s.distances)
			if errors.Is(err, internal.ErrSlugTaken) {
				fmt.Printf("event %s already exists\n", *s.input.Slug)
				continue
			}
			if err != nil {
				log.Fatalf("failed to create event %s: %v", *s.input.Slug, err)
			}
			if err := svc.Events.PublishEvent(ctx, adminID, e.ID); err != nil {
				log.Fatalf("failed to publish event %s: %v", e.Slug, err)
			}
			if err := seedViews(ctx, svc.Bus, e, s.views); err != nil {
				log.Fatalf("failed to seed views for %s: %v", e.Slug, err)
			}
			fmt.Println("Seeded event:", e.Slug)
		}
	},
}

// ensureAccount registers the account when missing and makes sure it holds role.
func ensureAccount(ctx context.Context, authSvc *auth.Service, accounts *authPostgres.Repository, users *user.Service, email, name, password string, role permission.Role) string {
	var userID string
	res, err := authSvc.Register(ctx, auth.RegisterDTO{Email: email, Password: password, DisplayName: name})
	switch {
	case err == nil:
		userID = res.User.ID
		fmt.Println("Seeded user:", email)
	case errors.Is(err, internal.ErrEmailTaken):
		creds, ferr := accounts.FindCredentialsByEmail(ctx, email)
		if ferr != nil {
			log.Fatalf("failed to look up %s: %v", email, ferr)
		}
		userID = creds.UserID
		fmt.Println("user already exists:", email)
	default:
		log.Fatalf("failed to register %s: %v", email, err)
	}

	if role == permission.DefaultRole {
		return userID
	}
	_, err = users.GrantRole(ctx, "", userID, user.AssignRoleDTO{Role: string(role)})
	if err != nil && !errors.Is(err, internal.ErrRoleAlreadyAssigned) {
		log.Fatalf("failed to grant %s to %s: %v", role, email, err)
	}
	return userID
}

// seedViews replays page views through the bus so the popular sort has data to order by.
// Delivery is synchronous: the counters are stored before the command exits.
func seedViews(ctx context.Context, bus *events.EventBus, e *event.Event, n int) error {
	for i := 0; i < n; i++ {
		if err := bus.PublishSync(ctx, events.NewCatalogEventViewed(e.ID, e.Slug)); err != nil {
			return err
		}
	}
	return nil
}

func clearCatalog(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&eventDatamodel.Rsvp{}, &eventDatamodel.Distance{}, &eventDatamodel.Event{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

type seedEvent struct {
	input     event.EventInput
	distances []event.DistanceInput
	views     int
}

func sampleEvents(now time.Time) []seedEvent {
	str := func(s string) *string { return &s }
	num := func(n int) *int { return &n }
	km := func(f float64) *float64 { return &f }
	at := func(days int) *time.Time {
		t := time.Date(now.Year(), now.Month(), now.Day(), 8, 0, 0, 0, time.UTC).AddDate(0, 0, days)
		return &t
	}
	yes := true

	return []seedEvent{
		{
			input: event.EventInput{
				Name: str("Harbourfront 10K"), Slug: str("harbourfront-10k"), EventType: str("race"),
				StartDate: at(30), City: str("Toronto"), Province: str("ON"), Terrain: str("road"),
				PriceFromCad: num(4500), Featured: &yes, ShortDescription: str("Flat and fast along the lake."),
			},
			distances: []event.DistanceInput{
				{Distance: "5k", DistanceKm: km(5), PriceCad: num(4500)},
				{Distance: "10k", DistanceKm: km(10), PriceCad: num(5500)},
			},
			views: 42,
		},
		{
			input: event.EventInput{
				Name: str("Sea to Sky Trail Ultra"), Slug: str("sea-to-sky-trail-ultra"), EventType: str("race"),
				StartDate: at(75), City: str("Squamish"), Province: str("BC"), Terrain: str("trail"),
				PriceFromCad: num(9900), ElevationGainMetres: num(2400),
			},
			distances: []event.DistanceInput{
				{Distance: "half", DistanceKm: km(21.1), PriceCad: num(9900)},
				{Distance: "ultra", DistanceKm: km(50), PriceCad: num(17500), Capacity: num(300)},
			},
			views: 17,
		},
		{
			input: event.EventInput{
				Name: str("Old Port Fun Run"), Slug: str("old-port-fun-run"), EventType: str("fun_run"),
				StartDate: at(12), City: str("Montreal"), Province: str("QC"), Terrain: str("mixed"),
				PriceFromCad: num(0),
			},
			distances: []event.DistanceInput{{Distance: "5k", DistanceKm: km(5)}},
			views:     8,
		},
		{
			input: event.EventInput{
				Name: str("Prairie Marathon"), Slug: str("prairie-marathon"), EventType: str("race"),
				StartDate: at(120), City: str("Saskatoon"), Province: str("SK"), Terrain: str("road"),
				PriceFromCad: num(11000), Featured: &yes,
			},
			distances: []event.DistanceInput{
				{Distance: "half", DistanceKm: km(21.1), PriceCad: num(8500)},
				{Distance: "marathon", DistanceKm: km(42.2), PriceCad: num(11000)},
			},
			views: 29,
		},
	}
}
