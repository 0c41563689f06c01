package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chatbot/model"
	"chatbot/platform"
	"chatbot/service"
)

var logger = platform.Logger

type ChatController struct {
	store *model.ChatStore
	relay *service.RelayService
}

func NewChatController(store *model.ChatStore, relay *service.RelayService) *ChatController {
	return &ChatController{store: store, relay: relay}
}

func (ctrl *ChatController) List(c *gin.Context) {
	chats, err := ctrl.store.ListChats()
	if err != nil {
		logger.Warnf("[%s] failed to list chats: %s", c.GetString("requestId"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list chats"})
		return
	}
	c.JSON(http.StatusOK, chats)
}

func (ctrl *ChatController) History(c *gin.Context) {
	chatID := c.Param("id")
	chat, err := ctrl.store.GetChat(chatID)
	if err != nil {
		if errors.Is(err, model.ErrChatNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Chat not found"})
			return
		}
		logger.Warnf("[%s] failed to get chat %s: %s", c.GetString("requestId"), chatID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get chat history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": chat.Name, "messages": chat.Messages})
}

func (ctrl *ChatController) New(c *gin.Context) {
	chatID := uuid.New().String()
	chat := &model.Chat{ID: chatID, Name: "Chat " + chatID[:8]}
	if err := ctrl.store.CreateChat(chat); err != nil {
		logger.Warnf("[%s] failed to create chat: %s", c.GetString("requestId"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create chat"})
		return
	}
	if err := ctrl.store.LogAction(chatID, model.ActionChatCreated, "New chat created"); err != nil {
		logger.Warnf("[%s] failed to log chat creation: %s", c.GetString("requestId"), err)
	}

	logger.Infof("[%s] created chat %s", c.GetString("requestId"), chatID)
	c.JSON(http.StatusOK, gin.H{"chatId": chatID, "name": chat.Name})
}

func (ctrl *ChatController) Rename(c *gin.Context) {
	chatID := c.Param("id")
	var input struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		logger.Warnf("[%s] Invalid input, %s", c.GetString("requestId"), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if err := ctrl.store.RenameChat(chatID, input.Name); err != nil {
		if errors.Is(err, model.ErrChatNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Chat not found"})
			return
		}
		logger.Warnf("[%s] failed to rename chat %s: %s", c.GetString("requestId"), chatID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to rename chat"})
		return
	}
	if err := ctrl.store.LogAction(chatID, model.ActionChatRenamed, "Chat renamed to: "+input.Name); err != nil {
		logger.Warnf("[%s] failed to log chat rename: %s", c.GetString("requestId"), err)
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (ctrl *ChatController) Remove(c *gin.Context) {
	chatID := c.Param("id")
	if err := ctrl.store.RemoveChat(chatID); err != nil {
		if errors.Is(err, model.ErrChatNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Chat not found"})
			return
		}
		logger.Warnf("[%s] failed to remove chat %s: %s", c.GetString("requestId"), chatID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove chat"})
		return
	}
	if err := ctrl.store.LogAction(chatID, model.ActionChatRemoved, "Chat removed"); err != nil {
		logger.Warnf("[%s] failed to log chat removal: %s", c.GetString("requestId"), err)
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Stream handles one send-message turn over SSE. An absent chatId starts a
// fresh chat.
func (ctrl *ChatController) Stream(c *gin.Context) {
	var input struct {
		ChatID  string `json:"chatId"`
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		logger.Warnf("[%s] Invalid input, %s", c.GetString("requestId"), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if input.ChatID == "" {
		input.ChatID = uuid.New().String()
	}

	logger.Infof("[%s] streaming chat %s", c.GetString("requestId"), input.ChatID)
	if err := ctrl.relay.StreamChat(c, input.ChatID, input.Message); err != nil {
		logger.Warnf("[%s] relay failed for chat %s: %s", c.GetString("requestId"), input.ChatID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to stream response"})
	}
}
