package conversation

import (
	"context"
	"errors"
	"sort"
	"strings"

	"reflet-widget/internal/database"
	"reflet-widget/internal/model"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var ErrNotFound = errors.New("conversation repository: not found")

type Repository interface {
	GetWidget(ctx context.Context, widgetID string) (model.WidgetItem, error)
	GetVisitor(ctx context.Context, widgetID, visitorID string) (model.VisitorItem, error)
	PutVisitor(ctx context.Context, visitor model.VisitorItem) error
	CreateConversation(ctx context.Context, conversation model.ConversationItem) error
	GetConversation(ctx context.Context, widgetID, conversationID string) (model.ConversationItem, error)
	UpdateConversationActivity(ctx context.Context, widgetID, conversationID, updatedAt, lastMessageAt string) error
	ListConversations(ctx context.Context, widgetID string, limit int) ([]model.ConversationItem, error)
	CreateMessage(ctx context.Context, message model.MessageItem) error
	ListMessages(ctx context.Context, widgetID, conversationID string, limit int) ([]model.MessageItem, error)
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func (r *DynamoRepository) GetWidget(ctx context.Context, widgetID string) (model.WidgetItem, error) {
	var widget model.WidgetItem
	err := r.db.Client.GetItem(
		ctx,
		model.WidgetsTable,
		map[string]types.AttributeValue{
			"widgetId": &types.AttributeValueMemberS{Value: widgetID},
		},
		&widget,
	)
	if err != nil {
		if isNotFound(err) {
			return model.WidgetItem{}, ErrNotFound
		}
		return model.WidgetItem{}, err
	}
	return widget, nil
}

func (r *DynamoRepository) GetVisitor(ctx context.Context, widgetID, visitorID string) (model.VisitorItem, error) {
	var visitor model.VisitorItem
	err := r.db.Client.GetItem(
		ctx,
		model.VisitorsTable,
		map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: model.VisitorPK(widgetID, visitorID)},
		},
		&visitor,
	)
	if err != nil {
		if isNotFound(err) {
			return model.VisitorItem{}, ErrNotFound
		}
		return model.VisitorItem{}, err
	}
	return visitor, nil
}

func (r *DynamoRepository) PutVisitor(ctx context.Context, visitor model.VisitorItem) error {
	return r.db.Client.PutItem(ctx, model.VisitorsTable, visitor)
}

func (r *DynamoRepository) CreateConversation(ctx context.Context, conversation model.ConversationItem) error {
	return r.db.Client.PutItem(ctx, model.ConversationsTable, conversation)
}

func (r *DynamoRepository) GetConversation(ctx context.Context, widgetID, conversationID string) (model.ConversationItem, error) {
	var conversation model.ConversationItem
	err := r.db.Client.GetItem(
		ctx,
		model.ConversationsTable,
		map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: model.ConversationPK(widgetID, conversationID)},
		},
		&conversation,
	)
	if err != nil {
		if isNotFound(err) {
			return model.ConversationItem{}, ErrNotFound
		}
		return model.ConversationItem{}, err
	}
	return conversation, nil
}

func (r *DynamoRepository) UpdateConversationActivity(ctx context.Context, widgetID, conversationID, updatedAt, lastMessageAt string) error {
	return r.db.Client.UpdateItem(
		ctx,
		model.ConversationsTable,
		map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: model.ConversationPK(widgetID, conversationID)},
		},
		"SET #updatedAt = :updatedAt, #lastMessageAt = :lastMessageAt",
		map[string]types.AttributeValue{
			":updatedAt":     &types.AttributeValueMemberS{Value: updatedAt},
			":lastMessageAt": &types.AttributeValueMemberS{Value: lastMessageAt},
		},
		map[string]string{
			"#updatedAt":     "updatedAt",
			"#lastMessageAt": "lastMessageAt",
		},
		nil,
	)
}

func (r *DynamoRepository) ListConversations(ctx context.Context, widgetID string, limit int) ([]model.ConversationItem, error) {
	items, err := r.db.Client.ScanItems(
		ctx,
		model.ConversationsTable,
		"#widgetId = :widgetId",
		map[string]types.AttributeValue{
			":widgetId": &types.AttributeValueMemberS{Value: widgetID},
		},
		map[string]string{
			"#widgetId": "widgetId",
		},
	)
	if err != nil {
		return nil, err
	}

	conversations := make([]model.ConversationItem, 0, len(items))
	for _, item := range items {
		var conversation model.ConversationItem
		if err := attributevalue.UnmarshalMap(item, &conversation); err != nil {
			return nil, err
		}
		conversations = append(conversations, conversation)
	}

	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].LastMessageAt > conversations[j].LastMessageAt
	})
	if limit > 0 && len(conversations) > limit {
		conversations = conversations[:limit]
	}
	return conversations, nil
}

func (r *DynamoRepository) CreateMessage(ctx context.Context, message model.MessageItem) error {
	return r.db.Client.PutItem(ctx, model.MessagesTable, message)
}

func (r *DynamoRepository) ListMessages(ctx context.Context, widgetID, conversationID string, limit int) ([]model.MessageItem, error) {
	items, err := r.db.Client.ScanItems(
		ctx,
		model.MessagesTable,
		"#conversationId = :conversationId AND #widgetId = :widgetId",
		map[string]types.AttributeValue{
			":conversationId": &types.AttributeValueMemberS{Value: conversationID},
			":widgetId":       &types.AttributeValueMemberS{Value: widgetID},
		},
		map[string]string{
			"#conversationId": "conversationId",
			"#widgetId":       "widgetId",
		},
	)
	if err != nil {
		return nil, err
	}

	messages := make([]model.MessageItem, 0, len(items))
	for _, item := range items {
		var message model.MessageItem
		if err := attributevalue.UnmarshalMap(item, &message); err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}

	sort.Slice(messages, func(i, j int) bool {
		if messages[i].CreatedAt == messages[j].CreatedAt {
			return messages[i].MessageID < messages[j].MessageID
		}
		return messages[i].CreatedAt < messages[j].CreatedAt
	})
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}

func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "item not found")
}
