package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"auroraqa/internal/domain"
	"auroraqa/internal/pipeline"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	telegramMaxMsgLen      = 4000
	telegramMaxSendRetries = 3
	telegramAnswerTimeout  = 60 * time.Second
)

// botSender is the part of *tgbotapi.BotAPI the channel uses to reply.
type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram answers questions sent to a Telegram bot.
type Telegram struct {
	token     string
	allowFrom []int64 // empty = allow all

	answerer Answerer
	corpus   CorpusStats

	bot    botSender
	self   string
	logger *slog.Logger
	sleep  func(time.Duration)
}

type TelegramConfig struct {
	Token     string
	AllowFrom []string // user ids as strings
	Answerer  Answerer
	Corpus    CorpusStats
	Logger    *slog.Logger
}

func NewTelegram(cfg TelegramConfig) *Telegram {
	var allowed []int64
	for _, s := range cfg.AllowFrom {
		if id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			allowed = append(allowed, id)
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Telegram{
		token:     cfg.Token,
		allowFrom: allowed,
		answerer:  cfg.Answerer,
		corpus:    cfg.Corpus,
		logger:    cfg.Logger.With("component", "telegram"),
		sleep:     time.Sleep,
	}
}

func (t *Telegram) Name() string { return "telegram" }

// Start connects to Telegram and long-polls for updates until ctx is done.
func (t *Telegram) Start(ctx context.Context) error {
	bot, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}
	t.bot = bot
	t.self = bot.Self.UserName
	t.logger.Info("telegram bot connected", "username", bot.Self.UserName, "id", bot.Self.ID)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("telegram channel stopping")
			bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			t.handleUpdate(ctx, update)
		}
	}
}

func (t *Telegram) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || update.Message.From == nil || update.Message.Chat == nil {
		return
	}

	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	if !t.isAllowed(userID) {
		t.logger.Warn("unauthorized telegram user", "user_id", userID, "username", update.Message.From.UserName)
		t.sendMessage(chatID, "Unauthorized. Your user ID is not in the allow list.")
		return
	}

	text := strings.TrimSpace(update.Message.Text)
	if text == "" {
		return
	}

	if update.Message.IsCommand() {
		t.handleCommand(ctx, chatID, update.Message)
		return
	}

	t.logger.Info("telegram question received", "user_id", userID, "chat_id", chatID, "text_len", len(text))
	_, _ = t.bot.Send(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))

	t.sendMessage(chatID, t.answer(ctx, text))
}

func (t *Telegram) answer(ctx context.Context, text string) string {
	question, err := pipeline.ValidateQuestion(text)
	if err != nil {
		return validationMessage(err)
	}

	ctx, cancel := context.WithTimeout(pipeline.WithChannel(ctx, "telegram"), telegramAnswerTimeout)
	defer cancel()

	result, err := t.answerer.AnswerQuestion(ctx, question)
	if err != nil {
		t.logger.Error("telegram answer failed", "err", err)
		if errors.Is(err, domain.ErrUpstreamUnavailable) {
			return "I can't reach the member messages service right now. Please try again in a moment."
		}
		return failureMessage(err)
	}
	return result.Answer
}

func (t *Telegram) handleCommand(ctx context.Context, chatID int64, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		t.sendMessage(chatID, "Hello! I answer questions about member messages.\n\n"+
			"Try: When is Sophia planning her trip to Paris?\n\n"+
			"Commands:\n/stats - corpus statistics\n/help - show this message")
	case "help":
		var b strings.Builder
		b.WriteString("Send me a question in plain English. Examples:\n")
		for _, ex := range exampleQuestions {
			b.WriteString("- " + ex.Question + "\n")
		}
		b.WriteString("\nCommands:\n/stats - corpus statistics\n/help - show this message")
		t.sendMessage(chatID, b.String())
	case "stats":
		if t.corpus == nil {
			t.sendMessage(chatID, "Statistics are not available.")
			return
		}
		st, err := t.corpus.Stats(ctx)
		if err != nil {
			t.logger.Warn("telegram stats failed", "err", err)
			t.sendMessage(chatID, "Statistics are not available right now.")
			return
		}
		t.sendMessage(chatID, FormatStats(st))
	default:
		t.sendMessage(chatID, "Unknown command. Type /help for available commands.")
	}
}

func (t *Telegram) isAllowed(userID int64) bool {
	if len(t.allowFrom) == 0 {
		return true
	}
	return slices.Contains(t.allowFrom, userID)
}

func (t *Telegram) sendMessage(chatID int64, text string) {
	for _, chunk := range splitMessage(text, telegramMaxMsgLen) {
		t.sendChunk(chatID, chunk)
	}
}

// splitMessage cuts text into chunks of at most maxLen bytes, preferring a
// newline in the second half of the window and never splitting a rune.
func splitMessage(text string, maxLen int) []string {
	var chunks []string
	for len(text) > maxLen {
		cutAt := strings.LastIndex(text[:maxLen], "\n")
		if cutAt < maxLen/2 {
			cutAt = maxLen
			for cutAt > 0 && !utf8.RuneStart(text[cutAt]) {
				cutAt--
			}
		}
		chunks = append(chunks, text[:cutAt])
		text = text[cutAt:]
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

// sendChunk sends plain text, backing off on rate limits and transient errors.
func (t *Telegram) sendChunk(chatID int64, text string) {
	for attempt := 0; attempt <= telegramMaxSendRetries; attempt++ {
		_, err := t.bot.Send(tgbotapi.NewMessage(chatID, text))
		if err == nil {
			return
		}

		errStr := err.Error()
		if strings.Contains(errStr, "Too Many Requests") || strings.Contains(errStr, "429") {
			retryAfter := time.Duration(attempt+1) * 3 * time.Second
			t.logger.Warn("telegram rate limited, backing off", "retry_after", retryAfter, "attempt", attempt+1)
			t.sleep(retryAfter)
			continue
		}

		if attempt < telegramMaxSendRetries {
			backoff := time.Duration(attempt+1) * time.Second
			t.logger.Warn("telegram send error, retrying", "err", err, "backoff", backoff)
			t.sleep(backoff)
			continue
		}

		t.logger.Error("telegram send failed after retries", "err", err, "attempts", telegramMaxSendRetries+1)
	}
}
