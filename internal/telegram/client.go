/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package telegram

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"expense-tracker-bot-go/internal/bot"
	"expense-tracker-bot-go/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

const (
	DefaultPollTimeout = 60 * time.Second
	maxSendRetries     = 2
)

// api is the subset of tgbotapi.BotAPI the client uses.
type api interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Client sends replies and receives updates over the Bot API using long polling.
type Client struct {
	api         api
	pollTimeout time.Duration
}

func NewClient(cfg models.BotConfig) (*Client, error) {
	httpClient, err := createCustomHttpClient(cfg.PollTimeout)
	if err != nil {
		return nil, fmt.Errorf("unable to create custom http client: %w", err)
	}

	if err := tgbotapi.SetLogger(zap.NewStdLog(zap.L().Named("telegram"))); err != nil {
		return nil, fmt.Errorf("unable to set telegram logger: %w", err)
	}

	botApi, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint, &httpClient)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to telegram: %w", err)
	}
	botApi.Debug = cfg.Debug

	zap.L().Info("Authorized on telegram", zap.String("bot", botApi.Self.UserName))

	return newClient(botApi, cfg.PollTimeout), nil
}

func newClient(a api, pollTimeout time.Duration) *Client {
	if pollTimeout <= 0 {
		pollTimeout = DefaultPollTimeout
	}
	return &Client{api: a, pollTimeout: pollTimeout}
}

// The overall timeout must outlast a long poll.
func createCustomHttpClient(pollTimeout time.Duration) (http.Client, error) {
	if pollTimeout <= 0 {
		pollTimeout = DefaultPollTimeout
	}

	tr := &http.Transport{
		ResponseHeaderTimeout: pollTimeout + 10*time.Second,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			Timeout:   15 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConnsPerHost:   5,
		ExpectContinueTimeout: 5 * time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return http.Client{}, err
	}

	return http.Client{
		Transport: tr,
		Timeout:   pollTimeout + 30*time.Second,
	}, nil
}

// SendText sends text, split into several messages when it is too long.
func (c *Client) SendText(ctx context.Context, chatId int64, text string) error {
	for _, chunk := range SplitText(text, MaxMessageLength) {
		if err := c.send(ctx, tgbotapi.NewMessage(chatId, chunk)); err != nil {
			return fmt.Errorf("unable to send message: %w", err)
		}
	}
	return nil
}

// SendFile uploads data as a document named filename.
func (c *Client) SendFile(ctx context.Context, chatId int64, filename string, data []byte) error {
	document := tgbotapi.NewDocument(chatId, tgbotapi.FileBytes{Name: filename, Bytes: data})
	if err := c.send(ctx, document); err != nil {
		return fmt.Errorf("unable to send document %s: %w", filename, err)
	}
	return nil
}

// send retries when the Bot API asks the client to slow down.
func (c *Client) send(ctx context.Context, chattable tgbotapi.Chattable) error {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		_, err := c.api.Send(chattable)
		if err == nil {
			return nil
		}

		var apiErr *tgbotapi.Error
		if !errors.As(err, &apiErr) || apiErr.RetryAfter <= 0 || attempt >= maxSendRetries {
			return err
		}

		wait := time.Duration(apiErr.RetryAfter) * time.Second
		zap.L().Warn("Rate limited by telegram, retrying",
			zap.Duration("retry_after", wait),
			zap.Int("attempt", attempt+1))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// Run long polls for updates and passes text messages to dispatch until ctx
// is cancelled.
func (c *Client) Run(ctx context.Context, dispatch func(bot.Message)) error {
	config := tgbotapi.NewUpdate(0)
	config.Timeout = int(c.pollTimeout / time.Second)
	config.AllowedUpdates = []string{"message"}

	updates := c.api.GetUpdatesChan(config)
	zap.L().Info("Polling for updates", zap.Int("timeout_seconds", config.Timeout))

	for {
		select {
		case <-ctx.Done():
			c.api.StopReceivingUpdates()
			zap.L().Info("Stopped polling for updates")
			return nil
		case update, ok := <-updates:
			if !ok {
				return fmt.Errorf("telegram update channel closed")
			}
			msg, ok := ToMessage(update)
			if !ok {
				zap.L().Debug("Ignoring update", zap.Int("update_id", update.UpdateID))
				continue
			}
			dispatch(msg)
		}
	}
}

// ToMessage extracts a text message. Updates without text are ignored.
func ToMessage(update tgbotapi.Update) (bot.Message, bool) {
	m := update.Message
	if m == nil || m.Chat == nil || m.Text == "" {
		return bot.Message{}, false
	}

	msg := bot.Message{ChatId: m.Chat.ID, Text: m.Text}
	if m.From != nil {
		msg.UserId = m.From.ID
	} else {
		msg.UserId = m.Chat.ID
	}
	return msg, true
}
