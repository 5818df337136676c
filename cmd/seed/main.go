package main

import (
	"context"
	"flag"
	"time"

	"github.com/joho/godotenv"
	"github.com/qcom/authapi/internal/bootstrap"
	"github.com/qcom/authapi/internal/config"
	"github.com/qcom/authapi/internal/seed"
	"github.com/qcom/authapi/internal/service"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	count := flag.Int("count", seed.DefaultCount, "number of demo users to create")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		logrus.WithError(err).Debug("No .env file loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	logger := bootstrap.NewLogger(&cfg.Server)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	users, closeStore, err := bootstrap.OpenUserStore(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open user store")
	}
	defer closeStore()

	seeder := seed.NewSeeder(users, service.NewPasswordService(bcrypt.DefaultCost), logger)
	created, err := seeder.Run(ctx, *count)
	if err != nil {
		logger.WithError(err).Fatal("Seeding failed")
	}

	logger.WithField("created", created).Info("Seeding finished")
}
