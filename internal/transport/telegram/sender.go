// Package telegram delivers rendered ads through the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/adfiller/internal/logging"
)

// Config controls the bot client.
type Config struct {
	Token string
	// Endpoint overrides the API endpoint format, e.g. for a local Bot API server.
	Endpoint string
	Timeout  time.Duration
}

// Sender implements ad.Sender. Destinations are numeric chat ids or
// "@channel" usernames.
type Sender struct {
	bot    *tgbotapi.BotAPI
	logger *zap.Logger
}

// New authenticates the bot token and returns a Sender.
func New(cfg Config, logger *zap.Logger) (*Sender, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("delivery.token is required")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("connect telegram bot: %w", err)
	}
	logger = logging.OrNop(logger)
	logger.Info("telegram bot authorized", zap.String("bot", bot.Self.UserName))
	return &Sender{bot: bot, logger: logger}, nil
}

// SendText sends an HTML message.
func (s *Sender) SendText(ctx context.Context, destination, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var msg tgbotapi.MessageConfig
	if chatID, channel, err := parseDestination(destination); err != nil {
		return err
	} else if channel != "" {
		msg = tgbotapi.NewMessageToChannel(channel, message)
	} else {
		msg = tgbotapi.NewMessage(chatID, message)
	}
	msg.ParseMode = tgbotapi.ModeHTML
	return s.send(destination, msg)
}

// SendPhoto sends a photo by URL with an HTML caption.
func (s *Sender) SendPhoto(ctx context.Context, destination, imageURL, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	file := tgbotapi.FileURL(imageURL)
	var photo tgbotapi.PhotoConfig
	if chatID, channel, err := parseDestination(destination); err != nil {
		return err
	} else if channel != "" {
		photo = tgbotapi.NewPhotoToChannel(channel, file)
	} else {
		photo = tgbotapi.NewPhoto(chatID, file)
	}
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeHTML
	return s.send(destination, photo)
}

func (s *Sender) send(destination string, c tgbotapi.Chattable) error {
	sent, err := s.bot.Send(c)
	if err != nil {
		return fmt.Errorf("telegram send to %s: %w", destination, err)
	}
	s.logger.Debug("telegram message sent",
		zap.String("receiver", destination),
		zap.Int("message_id", sent.MessageID),
	)
	return nil
}

func parseDestination(destination string) (int64, string, error) {
	destination = strings.TrimSpace(destination)
	if strings.HasPrefix(destination, "@") && len(destination) > 1 {
		return 0, destination, nil
	}
	id, err := strconv.ParseInt(destination, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid telegram destination %q", destination)
	}
	return id, "", nil
}
