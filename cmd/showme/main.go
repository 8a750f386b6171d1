package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/showme-app/showme/internal/profile"
	"github.com/showme-app/showme/server"
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "showme",
	Short: "Backend for the ShowMe voice-first visual answer app",
	Run: func(_ *cobra.Command, _ []string) {
		instanceProfile := &profile.Profile{
			Mode:               viper.GetString("mode"),
			Addr:               viper.GetString("addr"),
			Port:               viper.GetInt("port"),
			Version:            version,
			FrontendOrigin:     viper.GetString("frontend-origin"),
			AIBaseURL:          viper.GetString("ai-base-url"),
			AIAPIKey:           viper.GetString("ai-api-key"),
			AIChatModel:        viper.GetString("ai-chat-model"),
			AIImageModel:       viper.GetString("ai-image-model"),
			AISpeechModel:      viper.GetString("ai-speech-model"),
			AISpeechVoice:      viper.GetString("ai-speech-voice"),
			RateLimitPerMinute: viper.GetInt("rate-limit-per-minute"),
			RateLimitBurst:     viper.GetInt("rate-limit-burst"),
		}
		if err := instanceProfile.Validate(); err != nil {
			slog.Error("invalid configuration", "error", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		s, err := server.NewServer(ctx, instanceProfile)
		if err != nil {
			slog.Error("failed to create server", "error", err)
			os.Exit(1)
		}

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sig
			slog.Info("shutting down")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := s.Shutdown(shutdownCtx); err != nil {
				slog.Error("graceful shutdown failed", "error", err)
			}
			cancel()
		}()

		slog.Info("server started",
			"version", version,
			"mode", instanceProfile.Mode,
			"addr", fmt.Sprintf("%s:%d", instanceProfile.Addr, instanceProfile.Port))
		if err := s.Start(ctx); err != nil {
			slog.Error("server stopped with error", "error", err)
			os.Exit(1)
		}
	},
}

func init() {
	// A local .env is optional.
	_ = godotenv.Load()

	flags := rootCmd.PersistentFlags()
	flags.String("mode", "dev", `server mode, "dev" or "prod"`)
	flags.String("addr", "", "binding address")
	flags.Int("port", 8082, "binding port")
	flags.String("frontend-origin", "http://localhost:5173", "origin allowed by CORS")
	flags.String("ai-base-url", "", "OpenAI-compatible API base URL")
	flags.String("ai-api-key", "", "API key for the AI provider")
	flags.String("ai-chat-model", "", "chat model for planning and classification")
	flags.String("ai-image-model", "", "image generation model")
	flags.String("ai-speech-model", "", "speech synthesis model")
	flags.String("ai-speech-voice", "", "speech synthesis voice")
	flags.Int("rate-limit-per-minute", 10, "generation requests allowed per client per minute")
	flags.Int("rate-limit-burst", 5, "generation request burst per client")

	if err := viper.BindPFlags(flags); err != nil {
		panic(err)
	}
	viper.SetEnvPrefix("showme")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
