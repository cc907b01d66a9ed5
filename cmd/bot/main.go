package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"clinic-intake/internal/config"
	"clinic-intake/internal/delivery"
	"clinic-intake/internal/engine"
	"clinic-intake/internal/identity"
	"clinic-intake/internal/llm"
	"clinic-intake/internal/session"
	"clinic-intake/internal/validation"
	"clinic-intake/internal/webhook"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := session.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("failed to init session store: %v", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Printf("failed to close session store: %v", err)
		}
	}()

	llmClient, err := llm.NewFactory(cfg).CreateClient(string(cfg.LLMProvider))
	if err != nil {
		// The validator fails open without a client; keep the intake running.
		log.Printf("failed to create llm client, answer validation disabled: %v", err)
		llmClient = nil
	}
	validator := validation.New(llmClient, cfg.ValidationTimeout)

	hasher := identity.NewHasher(cfg.PhoneHashSalt)

	switch cfg.DeliveryChannel {
	case config.ChannelTelegram:
		tg, err := delivery.NewTelegram(cfg.TelegramBotToken)
		if err != nil {
			log.Fatalf("failed to create telegram client: %v", err)
		}
		eng := engine.New(store, tg, validator, hasher, cfg.SessionTimeout, cfg.DeliveryTimeout)
		log.Printf("listening for telegram updates")
		tg.Listen(ctx, func(ctx context.Context, identity, text, messageID string) {
			if err := eng.HandleInbound(ctx, engine.Inbound{Identity: identity, Text: text, MessageID: messageID}); err != nil {
				log.Printf("inbound handling failed: %v", err)
			}
		})

	case config.ChannelWhatsApp:
		wa := delivery.NewWhatsApp(cfg.WhatsAppAccessToken, cfg.WhatsAppPhoneNumberID, cfg.DeliveryTimeout)
		eng := engine.New(store, wa, validator, hasher, cfg.SessionTimeout, cfg.DeliveryTimeout)
		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Port),
			Handler: webhook.NewServer(eng, store, cfg.WhatsAppVerifyToken).Router(),
		}

		go func() {
			log.Printf("listening on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("server failed: %v", err)
			}
		}()

		<-ctx.Done()
		log.Printf("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown failed: %v", err)
		}

	default:
		log.Fatalf("unknown delivery channel: %s", cfg.DeliveryChannel)
	}
}
