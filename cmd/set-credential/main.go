package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/assessly/assessly-backend/internal/config"
	"github.com/assessly/assessly-backend/internal/database"
	"github.com/assessly/assessly-backend/internal/logger"
	"github.com/assessly/assessly-backend/internal/model"
	"github.com/assessly/assessly-backend/internal/repository"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	settingRepo := repository.NewSettingRepository(pool)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Configure LLM Credential ===")

	// API key is read without echo.
	fmt.Print("Enter Groq API Key: ")
	byteKey, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading API key")
		return
	}
	apiKey := strings.TrimSpace(string(byteKey))
	fmt.Println()
	if apiKey == "" {
		fmt.Println("Error: API key is required")
		return
	}

	fmt.Printf("Enter Model (blank for %s): ", cfg.DefaultModel)
	modelName, _ := reader.ReadString('\n')
	modelName = strings.TrimSpace(modelName)

	// ─── Store ─────────────────────────────────────────────────────────
	if err := settingRepo.Upsert(ctx, model.SettingGroqAPIKey, apiKey); err != nil {
		log.Fatal().Err(err).Msg("Failed to store API key")
	}
	if modelName != "" {
		if err := settingRepo.Upsert(ctx, model.SettingGroqModel, modelName); err != nil {
			log.Fatal().Err(err).Msg("Failed to store model preference")
		}
	}

	fmt.Println("Credential stored successfully")
}
