// Package telegram is the Telegram front-end over the question-answering
// pipeline and the web-search chatbot.
package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/hunterwarburton/fva/internal/chat"
	"github.com/hunterwarburton/fva/internal/core"
	"github.com/hunterwarburton/fva/internal/logger"
	"github.com/hunterwarburton/fva/internal/pipeline"
)

const (
	// maxMessageLen is Telegram's limit for one text message.
	maxMessageLen = 4096
	// maxHistory bounds the per-chat conversation kept between turns.
	maxHistory = 20

	callbackSources = "toggle:sources"
	callbackVoice   = "toggle:voice"
)

// Asker runs the question-answering pipeline.
type Asker interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Response, error)
}

// Chatter answers web-search chat turns.
type Chatter interface {
	Reply(ctx context.Context, userID int64, history core.History, message string, model core.ModelID) (*chat.Reply, error)
}

// PolicyService defines the interface for checking user permissions.
type PolicyService interface {
	IsAllowed(userID int64) bool
	IsToolAllowed(userID int64, toolName string) bool
}

// Sender is the subset of the Telegram API the bot calls.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendChatAction(ctx context.Context, params *bot.SendChatActionParams) (bool, error)
	SendAudio(ctx context.Context, params *bot.SendAudioParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
}

// chatState is what the bot remembers about one chat.
type chatState struct {
	docs        core.History
	web         core.History
	showSources bool
	voice       bool
	model       core.ModelID
}

// Bot represents a Telegram bot.
type Bot struct {
	api       *bot.Bot
	sender    Sender
	pipeline  Asker
	chat      Chatter
	policy    PolicyService
	namespace string

	mutex sync.Mutex
	chats map[int64]*chatState
}

// NewBot creates a new bot instance. chat may be nil, which disables /search.
func NewBot(token string, asker Asker, chatter Chatter, policy PolicyService, namespace string) (*Bot, error) {
	b := newBot(nil, asker, chatter, policy, namespace)

	botAPI, err := bot.New(token, bot.WithDefaultHandler(b.handleUpdate))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	b.api = botAPI
	b.sender = botAPI
	return b, nil
}

func newBot(sender Sender, asker Asker, chatter Chatter, policy PolicyService, namespace string) *Bot {
	return &Bot{
		sender:    sender,
		pipeline:  asker,
		chat:      chatter,
		policy:    policy,
		namespace: namespace,
		chats:     make(map[int64]*chatState),
	}
}

// Start polls for updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	b.api.Start(ctx)
}

func (b *Bot) handleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	switch {
	case update.Message != nil && update.Message.From != nil:
		msg := update.Message
		if !b.policy.IsAllowed(msg.From.ID) {
			logger.TelegramInfo("Chat[%d] User[%d]: refused, not on the allow list", msg.Chat.ID, msg.From.ID)
			b.send(ctx, msg.Chat.ID, "Sorry, you are not allowed to use this bot.")
			return
		}
		if strings.HasPrefix(msg.Text, "/") {
			b.handleCommand(ctx, msg)
			return
		}
		if msg.Text != "" {
			b.answer(ctx, msg.Chat.ID, msg.From.ID, msg.Text)
			return
		}
		logger.TelegramInfo("Chat[%d] User[%d]: Ignored unhandled message type.", msg.Chat.ID, msg.From.ID)
	case update.CallbackQuery != nil:
		b.handleCallbackQuery(ctx, update.CallbackQuery)
	}
}

func (b *Bot) state(chatID int64) *chatState {
	st, ok := b.chats[chatID]
	if !ok {
		st = &chatState{model: core.DefaultModel}
		b.chats[chatID] = st
	}
	return st
}

func (b *Bot) handleCommand(ctx context.Context, message *models.Message) {
	fields := strings.Fields(message.Text)
	command := strings.TrimPrefix(fields[0], "/")
	// Commands in groups arrive as /cmd@BotName.
	command, _, _ = strings.Cut(command, "@")
	arg := strings.TrimSpace(strings.TrimPrefix(message.Text, fields[0]))
	chatID := message.Chat.ID
	userID := message.From.ID
	logger.TelegramInfo("Chat[%d] User[%d]: Received command: /%s", chatID, userID, command)

	switch command {
	case "start":
		b.reset(chatID)
		b.send(ctx, chatID, "Hello! I answer questions about the forestry document library.\n\n"+helpText)
	case "help":
		b.send(ctx, chatID, helpText)
	case "ask":
		b.answer(ctx, chatID, userID, arg)
	case "search":
		b.search(ctx, chatID, userID, arg)
	case "sources":
		b.mutex.Lock()
		st := b.state(chatID)
		st.showSources = !st.showSources
		on := st.showSources
		b.mutex.Unlock()
		b.send(ctx, chatID, "Sources are now "+onOff(on)+".")
	case "voice":
		b.send(ctx, chatID, b.toggleVoice(chatID, userID))
	case "model":
		b.send(ctx, chatID, b.setModel(chatID, arg))
	case "settings":
		b.sendSettings(ctx, chatID)
	case "reset":
		b.reset(chatID)
		logger.TelegramInfo("Chat[%d]: User reset conversation history.", chatID)
		b.send(ctx, chatID, "Your conversation history has been reset.")
	default:
		logger.TelegramInfo("Chat[%d] User[%d]: Unknown command received: /%s", chatID, userID, command)
		b.send(ctx, chatID, "Unknown command. Try /help to see available commands.")
	}
}

const helpText = `Send any question to search the document library.

/ask <question> - Ask the document library
/search <message> - Chat with web search
/sources - Toggle showing source passages
/voice - Toggle spoken answers
/model [name] - Show or pick the language model
/settings - Show settings
/reset - Clear your conversation history`

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func (b *Bot) reset(chatID int64) {
	b.mutex.Lock()
	delete(b.chats, chatID)
	b.mutex.Unlock()
}

func (b *Bot) toggleVoice(chatID, userID int64) string {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	st := b.state(chatID)
	if !st.voice && !b.policy.IsToolAllowed(userID, "speech") {
		return "Voice replies are not enabled for your account."
	}
	st.voice = !st.voice
	return "Voice replies are now " + onOff(st.voice) + "."
}

func (b *Bot) setModel(chatID int64, name string) string {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	st := b.state(chatID)
	if name == "" {
		names := make([]string, 0, len(core.SupportedModels()))
		for _, m := range core.SupportedModels() {
			names = append(names, string(m))
		}
		return fmt.Sprintf("Current model: %s\nAvailable: %s", st.model, strings.Join(names, ", "))
	}
	model, err := core.ParseModelID(name)
	if err != nil {
		return fmt.Sprintf("Unknown model %q. Try /model to list them.", name)
	}
	st.model = model
	return "Model set to " + string(model) + "."
}

func (b *Bot) sendSettings(ctx context.Context, chatID int64) {
	b.mutex.Lock()
	st := b.state(chatID)
	text := fmt.Sprintf("Model: %s\nSources: %s\nVoice: %s", st.model, onOff(st.showSources), onOff(st.voice))
	b.mutex.Unlock()

	_, err := b.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
		ReplyMarkup: &models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{{
				{Text: "Toggle sources", CallbackData: callbackSources},
				{Text: "Toggle voice", CallbackData: callbackVoice},
			}},
		},
	})
	if err != nil {
		logger.TelegramError("Chat[%d]: sending settings: %v", chatID, err)
	}
}

// handleCallbackQuery processes a settings button click.
func (b *Bot) handleCallbackQuery(ctx context.Context, query *models.CallbackQuery) {
	b.sender.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: query.ID})

	if query.Message.Message == nil {
		logger.TelegramWarn("User[%d]: Received callback query with inaccessible message. Data: %s", query.From.ID, query.Data)
		return
	}
	chatID := query.Message.Message.Chat.ID
	userID := query.From.ID
	if !b.policy.IsAllowed(userID) {
		return
	}
	logger.TelegramInfo("Chat[%d] User[%d]: Received callback query: %s", chatID, userID, query.Data)

	switch query.Data {
	case callbackSources:
		b.mutex.Lock()
		st := b.state(chatID)
		st.showSources = !st.showSources
		on := st.showSources
		b.mutex.Unlock()
		b.send(ctx, chatID, "Sources are now "+onOff(on)+".")
	case callbackVoice:
		b.send(ctx, chatID, b.toggleVoice(chatID, userID))
	default:
		logger.TelegramInfo("Chat[%d] User[%d]: Ignoring unhandled callback query data: %s", chatID, userID, query.Data)
	}
}

// answer runs one question through the pipeline and replies with the
// formatted answer, then the audio when voice is on.
func (b *Bot) answer(ctx context.Context, chatID, userID int64, text string) {
	b.mutex.Lock()
	st := b.state(chatID)
	req := pipeline.Request{
		Question:    text,
		Model:       st.model,
		ShowSources: st.showSources,
		ShowAudio:   st.voice,
		Namespace:   b.namespace,
		History:     st.docs,
	}
	b.mutex.Unlock()

	typingDone := make(chan struct{})
	go b.sendContinuousTypingAction(ctx, chatID, typingDone)
	resp, err := b.pipeline.Run(ctx, req)
	close(typingDone)
	if err != nil {
		logger.TelegramError("Chat[%d] User[%d]: pipeline failed: %v", chatID, userID, err)
		b.send(ctx, chatID, userMessage(err))
		return
	}

	b.mutex.Lock()
	b.state(chatID).docs = trimHistory(resp.History)
	b.mutex.Unlock()

	reply := resp.Payload.PlainText()
	for _, w := range resp.Warnings {
		reply += "\n\nWarning: " + w
	}
	b.send(ctx, chatID, reply)

	if len(resp.Audio) > 0 {
		_, err := b.sender.SendAudio(ctx, &bot.SendAudioParams{
			ChatID: chatID,
			Audio:  &models.InputFileUpload{Filename: "answer.mp3", Data: bytes.NewReader(resp.Audio)},
			Title:  "Answer",
		})
		if err != nil {
			logger.TelegramError("Chat[%d]: sending audio: %v", chatID, err)
		}
	}
}

// search runs one turn of the web-search chatbot.
func (b *Bot) search(ctx context.Context, chatID, userID int64, text string) {
	if b.chat == nil {
		b.send(ctx, chatID, "Web search is not configured.")
		return
	}
	q, err := pipeline.Normalize(text)
	if err != nil {
		b.send(ctx, chatID, "Usage: /search <message>")
		return
	}

	b.mutex.Lock()
	st := b.state(chatID)
	history, model := st.web, st.model
	b.mutex.Unlock()

	typingDone := make(chan struct{})
	go b.sendContinuousTypingAction(ctx, chatID, typingDone)
	reply, err := b.chat.Reply(ctx, userID, history, q.Normalized, model)
	close(typingDone)
	if err != nil {
		logger.TelegramError("Chat[%d] User[%d]: chat failed: %v", chatID, userID, err)
		b.send(ctx, chatID, userMessage(err))
		return
	}

	b.mutex.Lock()
	b.state(chatID).web = trimHistory(reply.History)
	b.mutex.Unlock()
	b.send(ctx, chatID, reply.Text)
}

func trimHistory(h core.History) core.History {
	if len(h) <= maxHistory {
		return h
	}
	return h[len(h)-maxHistory:]
}

// userMessage turns a pipeline error into something a chat user can act on.
func userMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrEmptyQuery):
		return "Please send a question."
	case errors.Is(err, core.ErrGenerationTimeout), errors.Is(err, context.DeadlineExceeded):
		return "The answer took too long. Please try again."
	case errors.Is(err, core.ErrEmbeddingFailure), errors.Is(err, core.ErrIndexUnavailable):
		return "The document library is unavailable right now. Please try again later."
	case errors.Is(err, core.ErrModelUnavailable):
		return "The language model is unavailable right now. Please try again later."
	default:
		return "Sorry, I encountered an error while processing your request."
	}
}

// sendContinuousTypingAction sends the typing action periodically until the done channel is closed
func (b *Bot) sendContinuousTypingAction(ctx context.Context, chatID int64, done chan struct{}) {
	ticker := time.NewTicker(4 * time.Second) // Telegram typing status lasts ~5 seconds
	defer ticker.Stop()

	for {
		b.sender.SendChatAction(ctx, &bot.SendChatActionParams{
			ChatID: chatID,
			Action: "typing",
		})
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// send delivers text, split into Telegram-sized pieces.
func (b *Bot) send(ctx context.Context, chatID int64, text string) {
	for _, part := range splitMessage(text, maxMessageLen) {
		if _, err := b.sender.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: part}); err != nil {
			logger.TelegramError("Chat[%d]: sending message: %v", chatID, err)
			return
		}
	}
}

// splitMessage cuts text into pieces of at most max runes, preferring
// line breaks.
func splitMessage(text string, max int) []string {
	runes := []rune(text)
	var parts []string
	for len(runes) > max {
		cut := max
		for i := max; i > max/2; i-- {
			if runes[i] == '\n' {
				cut = i
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
		if len(runes) > 0 && runes[0] == '\n' {
			runes = runes[1:]
		}
	}
	return append(parts, string(runes))
}
