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

package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"expense-tracker-bot-go/internal/conversation"
	"expense-tracker-bot-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	MessageFailure     = "Something went wrong, please try again later."
	MessageQuickUsage  = `Use: /quick <category> <amount> [free text] --desc "..."`
	MessageUnknown     = "Unknown command. Send /help for the list of commands."
	MessageNoSession   = "Send /add to record an expense, or /help for all commands."
	DefaultListLimit   = 10
	DefaultMaxListSize = 100
)

// Transport is everything the bot needs from the chat service.
type Transport interface {
	SendText(ctx context.Context, chatId int64, text string) error
	SendFile(ctx context.Context, chatId int64, filename string, data []byte) error
}

// Message is one inbound text message.
type Message struct {
	ChatId int64
	UserId int64
	Text   string
}

type HandlerConfig struct {
	Store         store.ExpenseStore
	Transport     Transport
	Conversations *conversation.Registry
	Categories    []string
	ListMaxLimit  int
	Now           func() time.Time
}

// Handler routes messages to commands or the active /add conversation.
type Handler struct {
	store         store.ExpenseStore
	transport     Transport
	conversations *conversation.Registry
	helpText      string
	listMaxLimit  int
	now           func() time.Time
}

func NewHandler(cfg HandlerConfig) *Handler {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	listMax := cfg.ListMaxLimit
	if listMax <= 0 {
		listMax = DefaultMaxListSize
	}
	return &Handler{
		store:         cfg.Store,
		transport:     cfg.Transport,
		conversations: cfg.Conversations,
		helpText:      HelpText(cfg.Categories),
		listMaxLimit:  listMax,
		now:           now,
	}
}

// Handle processes one message. Only transport failures are returned;
// storage failures are logged and answered with a generic reply.
func (h *Handler) Handle(ctx context.Context, msg Message) error {
	requestId := uuid.New().String()
	log := zap.L().With(
		zap.String("request_id", requestId),
		zap.Int64("chat_id", msg.ChatId),
		zap.Int64("user_id", msg.UserId))

	command, args, isCommand := parseCommand(msg.Text)
	if !isCommand {
		return h.handleText(ctx, log, msg)
	}

	log.Debug("Handling command", zap.String("command", command))

	switch command {
	case "start", "help":
		return h.reply(ctx, msg, h.helpText)
	case "add":
		return h.replyAll(ctx, msg, h.conversations.Begin(conversationKey(msg)))
	case "cancel":
		return h.reply(ctx, msg, h.conversations.Cancel(conversationKey(msg)))
	case "quick":
		return h.handleQuick(ctx, log, msg, args)
	case "list":
		return h.handleList(ctx, log, msg, args)
	case "summary":
		return h.handleSummary(ctx, log, msg, args)
	case "export":
		return h.handleExport(ctx, log, msg)
	default:
		return h.reply(ctx, msg, MessageUnknown)
	}
}

func (h *Handler) handleText(ctx context.Context, log *zap.Logger, msg Message) error {
	replies, handled, err := h.conversations.Handle(ctx, conversationKey(msg), msg.Text)
	if err != nil {
		log.Error("Conversation step failed", zap.Error(err))
		if sendErr := h.replyAll(ctx, msg, replies); sendErr != nil {
			return sendErr
		}
		return h.reply(ctx, msg, MessageFailure)
	}
	if !handled {
		return h.reply(ctx, msg, MessageNoSession)
	}
	return h.replyAll(ctx, msg, replies)
}

func (h *Handler) reply(ctx context.Context, msg Message, text string) error {
	if err := h.transport.SendText(ctx, msg.ChatId, text); err != nil {
		return fmt.Errorf("unable to send reply to chat %d: %w", msg.ChatId, err)
	}
	return nil
}

func (h *Handler) replyAll(ctx context.Context, msg Message, texts []string) error {
	for _, text := range texts {
		if err := h.reply(ctx, msg, text); err != nil {
			return err
		}
	}
	return nil
}

func conversationKey(msg Message) conversation.Key {
	return conversation.Key{ChatId: msg.ChatId, UserId: msg.UserId}
}

// parseCommand splits "/name@bot args" into name and args.
func parseCommand(text string) (command, args string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}

	head, rest, _ := strings.Cut(text[1:], " ")
	if i := strings.IndexAny(head, "\n\t"); i >= 0 {
		rest = head[i:] + " " + rest
		head = head[:i]
	}
	if at := strings.Index(head, "@"); at >= 0 {
		head = head[:at]
	}
	if head == "" {
		return "", "", false
	}
	return strings.ToLower(head), strings.TrimSpace(rest), true
}

// HelpText lists the commands and the suggested categories.
func HelpText(categories []string) string {
	var b strings.Builder
	b.WriteString("Hi! I'm your Expense Tracker Bot.\n\n")
	b.WriteString("Commands:\n")
	b.WriteString("/add - interactive add\n")
	b.WriteString("/quick <category> <amount> [free text] --desc \"your description\"\n")
	b.WriteString("/list [n] - last n items\n")
	b.WriteString("/summary [today|week|month|all]\n")
	b.WriteString("/export - get CSV\n")
	b.WriteString("/cancel - stop the current /add\n")
	b.WriteString("/help - this message")
	if len(categories) > 0 {
		b.WriteString("\n\nCategories: ")
		b.WriteString(strings.Join(categories, ", "))
	}
	return b.String()
}
