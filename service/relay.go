package service

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"chatbot/model"
	"chatbot/platform"
)

var logger = platform.Logger

// In-band frames sent downstream. Parse errors name themselves; anything
// else is reported without upstream detail.
const (
	doneFrame       = "data: [DONE]\n\n"
	parseErrorFrame = "data: Error parsing response\n\n"
	genericErrFrame = "data: Error: An unexpected error occurred. Please try again later.\n\n"
)

// ChatStore is the slice of persistence the relay needs.
type ChatStore interface {
	GetChat(id string) (*model.Chat, error)
	CreateChat(chat *model.Chat) error
	AppendMessage(msg *model.Message) error
	LogAction(chatID, action, content string) error
}

// Completer issues one streaming completion request and exposes the raw
// SSE body.
type Completer interface {
	StreamCompletion(ctx context.Context, messages []platform.ChatMessage) (io.ReadCloser, error)
}

// completionChunk is the typed envelope for one upstream data frame. Delta
// fields other than content (role tags, finish reasons) decode to the zero
// value and are skipped.
type completionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// RelayService streams one completion per send: forwards upstream deltas to
// the client as they arrive, accumulates them, and commits the assembled
// assistant message when the stream ends.
type RelayService struct {
	store   ChatStore
	llm     Completer
	timeout time.Duration

	// one lock per chat id; sends to the same chat are serialized so
	// appends never interleave
	locks sync.Map
}

func NewRelayService(store ChatStore, llm Completer, timeout time.Duration) *RelayService {
	return &RelayService{
		store:   store,
		llm:     llm,
		timeout: timeout,
	}
}

func (s *RelayService) chatLock(chatID string) *sync.Mutex {
	lock, _ := s.locks.LoadOrStore(chatID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

func defaultChatName(chatID string) string {
	short := chatID
	if len(short) > 8 {
		short = short[:8]
	}
	return "Chat " + short
}

// StreamChat relays one turn. The user message commits before the upstream
// call and is never rolled back; the assistant message commits only after
// the stream terminates with accumulated content.
func (s *RelayService) StreamChat(c *gin.Context, chatID, message string) error {
	w := c.Writer
	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.Warnf("[%s] get Writer flusher error", c.GetString("requestId"))
		return errors.New("streaming unsupported by response writer")
	}

	lock := s.chatLock(chatID)
	lock.Lock()
	defer lock.Unlock()

	chat, err := s.store.GetChat(chatID)
	if err != nil {
		if !errors.Is(err, model.ErrChatNotFound) {
			return err
		}
		chat = &model.Chat{ID: chatID, Name: defaultChatName(chatID)}
		if err := s.store.CreateChat(chat); err != nil {
			return err
		}
		if err := s.store.LogAction(chatID, model.ActionChatCreated, "New chat created"); err != nil {
			logger.Warnf("[%s] failed to log chat creation: %s", c.GetString("requestId"), err)
		}
	}

	userMsg := &model.Message{ChatID: chatID, Role: model.RoleUser, Content: message}
	if err := s.store.AppendMessage(userMsg); err != nil {
		return err
	}
	if err := s.store.LogAction(chatID, model.ActionUserMessage, message); err != nil {
		logger.Warnf("[%s] failed to log user message: %s", c.GetString("requestId"), err)
	}

	history := make([]platform.ChatMessage, 0, len(chat.Messages)+1)
	for _, m := range chat.Messages {
		history = append(history, platform.ChatMessage{Role: m.Role, Content: m.Content})
	}
	history = append(history, platform.ChatMessage{Role: model.RoleUser, Content: message})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	reqCtx := c.Request.Context()
	ctx := reqCtx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(reqCtx, s.timeout)
		defer cancel()
	}

	body, err := s.llm.StreamCompletion(ctx, history)
	if err != nil {
		var statusErr *platform.StatusError
		if errors.As(err, &statusErr) {
			logger.Errorf("[%s] API request failed with status code: %d", c.GetString("requestId"), statusErr.Code)
			fmt.Fprintf(w, "data: Error: API request failed with status code %d\n\n", statusErr.Code)
		} else {
			logger.Errorf("[%s] completion request error: %s", c.GetString("requestId"), err)
			fmt.Fprint(w, genericErrFrame)
		}
		flusher.Flush()
		return nil
	}
	defer body.Close()

	var full strings.Builder
	terminated := false
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			fmt.Fprint(w, doneFrame)
			flusher.Flush()
			terminated = true
			break
		}

		var chunk completionChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			logger.Errorf("[%s] error parsing JSON response: %s", c.GetString("requestId"), err)
			fmt.Fprint(w, parseErrorFrame)
			flusher.Flush()
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		full.WriteString(delta)
		fmt.Fprintf(w, "data: %s\n\n", delta)
		flusher.Flush()
	}

	if err := scanner.Err(); err != nil {
		if reqCtx.Err() != nil {
			// client went away; nothing left to tell it, nothing to persist
			logger.Infof("[%s] client disconnected mid-stream: %s", c.GetString("requestId"), reqCtx.Err())
			return nil
		}
		logger.Errorf("[%s] stream read error: %s", c.GetString("requestId"), err)
		fmt.Fprint(w, genericErrFrame)
		flusher.Flush()
		return nil
	}

	if !terminated {
		fmt.Fprint(w, doneFrame)
		flusher.Flush()
	}

	if full.Len() == 0 {
		return nil
	}
	content := full.String()
	assistantMsg := &model.Message{ChatID: chatID, Role: model.RoleAssistant, Content: content}
	if err := s.store.AppendMessage(assistantMsg); err != nil {
		// the stream is already underway; report in-band, not via the
		// controller's JSON error path
		logger.Errorf("[%s] failed to persist assistant message: %s", c.GetString("requestId"), err)
		fmt.Fprint(w, genericErrFrame)
		flusher.Flush()
		return nil
	}
	if err := s.store.LogAction(chatID, model.ActionAssistantMessage, content); err != nil {
		logger.Warnf("[%s] failed to log assistant message: %s", c.GetString("requestId"), err)
	}
	return nil
}
