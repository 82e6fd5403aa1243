package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		logrus.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}
