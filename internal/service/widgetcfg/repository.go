package widgetcfg

import (
	"context"
	"errors"
	"strings"

	"reflet-widget/internal/database"
	"reflet-widget/internal/model"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var ErrNotFound = errors.New("widgetcfg repository: not found")

type Repository interface {
	GetWidget(ctx context.Context, widgetID string) (model.WidgetItem, error)
	PutWidget(ctx context.Context, widget model.WidgetItem) error
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

func (r *DynamoRepository) PutWidget(ctx context.Context, widget model.WidgetItem) error {
	return r.db.Client.PutItem(ctx, model.WidgetsTable, widget)
}

func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "item not found")
}
