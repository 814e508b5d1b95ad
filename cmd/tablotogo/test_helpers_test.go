package main

import (
	"tablotogo/internal/config"
)

func defaultTestConfig() *config.Config {
	cfg := config.Default()
	return &cfg
}
