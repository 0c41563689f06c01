package model

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var ErrChatNotFound = errors.New("chat not found")

// ChatSummary is the listing shape: id and display name only.
type ChatSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ChatStore owns all persisted chat state. Every method is one transactional
// unit; the store holds no request-scoped state and is safe for concurrent use.
type ChatStore struct {
	db *gorm.DB
}

func NewChatStore(db *gorm.DB) *ChatStore {
	return &ChatStore{db: db}
}

func (s *ChatStore) ListChats() ([]ChatSummary, error) {
	var chats []ChatSummary
	if err := s.db.Model(&Chat{}).Select("id", "name").Find(&chats).Error; err != nil {
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return chats, nil
}

// GetChat returns the chat with its messages preloaded in append order.
func (s *ChatStore) GetChat(id string) (*Chat, error) {
	var chat Chat
	err := s.db.Preload("Messages", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	}).Where("id = ?", id).First(&chat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return &chat, nil
}

func (s *ChatStore) CreateChat(chat *Chat) error {
	if err := s.db.Create(chat).Error; err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}
	return nil
}

func (s *ChatStore) RenameChat(id, name string) error {
	result := s.db.Model(&Chat{}).Where("id = ?", id).Update("name", name)
	if result.Error != nil {
		return fmt.Errorf("failed to rename chat: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrChatNotFound
	}
	return nil
}

// RemoveChat deletes the chat and all of its messages in one transaction.
// The audit log is retained.
func (s *ChatStore) RemoveChat(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", id).Delete(&Chat{})
		if result.Error != nil {
			return fmt.Errorf("failed to remove chat: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrChatNotFound
		}
		if err := tx.Where("chat_id = ?", id).Delete(&Message{}).Error; err != nil {
			return fmt.Errorf("failed to remove chat messages: %w", err)
		}
		return nil
	})
}

func (s *ChatStore) AppendMessage(msg *Message) error {
	if err := s.db.Create(msg).Error; err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

func (s *ChatStore) LogAction(chatID, action, content string) error {
	log := &ChatLog{
		ChatID:  chatID,
		Action:  action,
		Content: content,
	}
	if err := s.db.Create(log).Error; err != nil {
		return fmt.Errorf("failed to log chat action: %w", err)
	}
	return nil
}
