package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"socials-billing/internal/config"
	"socials-billing/internal/domain"
	"socials-billing/internal/domain/model"
	"socials-billing/internal/domain/ports/repository"
	"socials-billing/internal/infra/api"
	"socials-billing/internal/infra/db/migrations"
	pg "socials-billing/internal/infra/db/postgres"
	"socials-billing/internal/infra/logging"
	"socials-billing/internal/usecase"
)

type planSeed struct {
	ID, Display, Description string
	Monthly, Annual          int64 // minor units
	TrialDays                int
	RequireCard              bool
	Features                 map[string]any
}

// -1 means unlimited.
var plans = []planSeed{
	{"free", "Free", "Perfect for getting started", 0, 0, 0, false, map[string]any{
		"pages": 1, "team_members": 1, "posts_per_month": 30, "scheduled_posts": 10,
		"analytics_history_days": 30, "ai_captions_per_month": 0, "api_access": false,
	}},
	{"pro", "Pro", "For growing businesses", 2900, 29000, 14, false, map[string]any{
		"pages": 5, "team_members": 3, "posts_per_month": 500, "scheduled_posts": 100,
		"analytics_history_days": 90, "ai_captions_per_month": 50, "api_access": true, "export_reports": true,
	}},
	{"business", "Business", "For agencies and larger teams", 7900, 79000, 30, true, map[string]any{
		"pages": 25, "team_members": 10, "posts_per_month": 2000, "scheduled_posts": 500,
		"analytics_history_days": 365, "ai_captions_per_month": 500, "api_access": true,
		"advanced_analytics": true, "competitor_analysis": true, "export_reports": true,
	}},
	{"enterprise", "Enterprise", "Custom solutions for large organizations", 0, 0, 0, false, map[string]any{
		"pages": -1, "team_members": -1, "posts_per_month": -1, "scheduled_posts": -1,
		"analytics_history_days": -1, "ai_captions_per_month": -1, "api_access": true,
		"advanced_analytics": true, "competitor_analysis": true, "export_reports": true, "custom_integrations": true,
	}},
}

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	email := flag.String("email", "demo@socials.local", "demo account email")
	admin := flag.Bool("admin", false, "issue the demo token with the admin role")
	flag.Parse()

	_ = godotenv.Load()

	// Seeding needs no provider URL.
	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Log, true)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := migrations.Up(cfg.Database.URL, logger); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	planUC := usecase.NewPlanUseCase(pg.NewPostgresPlanRepo(pool))
	for i, s := range plans {
		p, err := model.NewPlan(s.ID, s.ID, s.Display, s.Monthly, s.Annual)
		if err != nil {
			log.Fatalf("plan %q: %v", s.ID, err)
		}
		p.Description = s.Description
		p.TrialDays = s.TrialDays
		p.RequireCardForTrial = s.RequireCard
		p.DisplayOrder = i
		p.Features = s.Features
		if s.Annual > 0 {
			p.AnnualDiscountPercent = 100 - float64(s.Annual)*100/float64(s.Monthly*12)
		}
		if err := planUC.Save(ctx, p); err != nil {
			log.Fatalf("save plan %q: %v", s.ID, err)
		}
		fmt.Printf("plan %-10s monthly=%s annual=%s trial=%dd\n",
			p.ID, usecase.MajorUnits(p.MonthlyPrice).StringFixed(2), usecase.MajorUnits(p.AnnualPrice).StringFixed(2), p.TrialDays)
	}

	accounts := pg.NewAccountRepo(pool)
	acc, err := demoAccount(ctx, accounts, *email)
	if err != nil {
		log.Fatalf("demo account: %v", err)
	}

	role := ""
	if *admin {
		role = api.RoleAdmin
	}
	token, err := api.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL).Issue(acc.ID, role)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	fmt.Printf("\naccount %s (%s)\nAuthorization: Bearer %s\n", acc.ID, acc.Email, token)
}

// demoAccount reuses a stable id derived from the email so reruns are idempotent.
func demoAccount(ctx context.Context, repo repository.AccountRepository, email string) (*model.Account, error) {
	id := "demo-" + email
	acc, err := repo.FindByID(ctx, repository.NoTX, id)
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	acc, err = model.NewAccount(id, email, "Demo Account")
	if err != nil {
		return nil, err
	}
	return acc, repo.Save(ctx, repository.NoTX, acc)
}
