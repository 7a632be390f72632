package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/librarium-backend/internal/logger"
	"github.com/yungbote/librarium-backend/internal/observability"
	"github.com/yungbote/librarium-backend/internal/repos"
	"github.com/yungbote/librarium-backend/internal/types"
)

const maxMessageLength = 2000

type MessageService interface {
	Send(ctx context.Context, senderID, recipientID uuid.UUID, body string, replyToID *uuid.UUID) (*types.Message, error)
	Conversation(ctx context.Context, userID, otherID uuid.UUID, limit int) ([]*types.Message, error)
	Conversations(ctx context.Context, userID uuid.UUID) ([]ConversationSummary, error)
	Inbox(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]*types.Message, error)
	MarkRead(ctx context.Context, userID, messageID uuid.UUID) error
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
}

// ConversationSummary is one row of the conversation list: the counterparty,
// the newest message either way, and how many of theirs are still unread.
type ConversationSummary struct {
	With        types.PublicUser `json:"with"`
	LastMessage *types.Message   `json:"last_message"`
	Unread      int64            `json:"unread"`
}

type messageService struct {
	db             *gorm.DB
	log            *logger.Logger
	messageRepo    repos.MessageRepo
	friendshipRepo repos.FriendshipRepo
	userRepo       repos.UserRepo
	notifier       GameNotifier
}

func NewMessageService(
	db *gorm.DB,
	log *logger.Logger,
	messageRepo repos.MessageRepo,
	friendshipRepo repos.FriendshipRepo,
	userRepo repos.UserRepo,
	notifier GameNotifier,
) MessageService {
	return &messageService{
		db:             db,
		log:            log.With("service", "MessageService"),
		messageRepo:    messageRepo,
		friendshipRepo: friendshipRepo,
		userRepo:       userRepo,
		notifier:       notifier,
	}
}

// Send delivers a private message. Only friends can message each other.
func (ms *messageService) Send(ctx context.Context, senderID, recipientID uuid.UUID, body string, replyToID *uuid.UUID) (*types.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, validationError("message body is required")
	}
	if len(body) > maxMessageLength {
		return nil, validationError("message too long")
	}
	if senderID == recipientID {
		return nil, validationError("cannot message yourself")
	}

	var created *types.Message
	err := ms.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ms.userRepo.GetByID(ctx, tx, recipientID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		friends, err := ms.friendshipRepo.AreFriends(ctx, tx, senderID, recipientID)
		if err != nil {
			return err
		}
		if !friends {
			return ErrForbidden
		}

		created = &types.Message{
			ID:          uuid.New(),
			SenderID:    senderID,
			RecipientID: recipientID,
			Body:        body,
			Kind:        types.MessageKindPrivate,
			ReplyToID:   replyToID,
		}
		return ms.messageRepo.Create(ctx, tx, created)
	})
	if err != nil {
		return nil, err
	}

	observability.Current().IncMessageSent()
	ms.notifier.MessageReceived(recipientID, created)
	return created, nil
}

func (ms *messageService) Conversation(ctx context.Context, userID, otherID uuid.UUID, limit int) ([]*types.Message, error) {
	messages, err := ms.messageRepo.Conversation(ctx, nil, userID, otherID, limit)
	if err != nil {
		return nil, err
	}
	// Opening a conversation reads it.
	if err := ms.messageRepo.MarkConversationRead(ctx, nil, userID, otherID); err != nil {
		ms.log.Warn("mark conversation read failed", "userID", userID, "error", err)
	}
	return messages, nil
}

// Conversations folds recent traffic into one row per counterparty.
func (ms *messageService) Conversations(ctx context.Context, userID uuid.UUID) ([]ConversationSummary, error) {
	messages, err := ms.messageRepo.ListInvolving(ctx, nil, userID, 0)
	if err != nil {
		return nil, err
	}

	byPartner := map[uuid.UUID]*ConversationSummary{}
	var order []uuid.UUID
	for _, message := range messages {
		partnerID := message.SenderID
		partner := message.Sender
		if partnerID == userID {
			partnerID = message.RecipientID
			partner = message.Recipient
		}
		summary, ok := byPartner[partnerID]
		if !ok {
			summary = &ConversationSummary{LastMessage: message}
			if partner != nil {
				summary.With = partner.Public()
			}
			byPartner[partnerID] = summary
			order = append(order, partnerID)
		}
		if message.RecipientID == userID && !message.Read {
			summary.Unread++
		}
	}

	out := make([]ConversationSummary, 0, len(order))
	for _, partnerID := range order {
		out = append(out, *byPartner[partnerID])
	}
	return out, nil
}

func (ms *messageService) Inbox(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]*types.Message, error) {
	return ms.messageRepo.ListInbox(ctx, nil, userID, unreadOnly)
}

func (ms *messageService) MarkRead(ctx context.Context, userID, messageID uuid.UUID) error {
	err := ms.messageRepo.MarkRead(ctx, nil, messageID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (ms *messageService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return ms.messageRepo.UnreadCount(ctx, nil, userID)
}
