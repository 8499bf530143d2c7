package widgetcfg

import (
	"context"
	"errors"
	"strings"
	"time"

	"reflet-widget/internal/database"
	"reflet-widget/internal/model"
	"reflet-widget/utils"
)

type ErrorCode string

const (
	ErrorCodeValidation   ErrorCode = "validation_error"
	ErrorCodeUnauthorized ErrorCode = "unauthorized"
	ErrorCodeNotFound     ErrorCode = "not_found"
	ErrorCodeInternal     ErrorCode = "internal_error"
)

type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

type Identity struct {
	AgentID string
	Email   string
}

// Config is the public shape the embed fetches once at initialisation.
type Config struct {
	OrganizationName string `json:"organizationName"`
	BrandColor       string `json:"brandColor"`
	Position         string `json:"position"`
	GreetingText     string `json:"greetingText,omitempty"`
	ShowLauncher     bool   `json:"showLauncher"`
	AutoOpen         bool   `json:"autoOpen"`
	ZIndex           int    `json:"zIndex"`
}

type SettingsInput struct {
	OrganizationName *string
	BrandColor       *string
	Position         *string
	GreetingText     *string
	ShowLauncher     *bool
	AutoOpen         *bool
	ZIndex           *int
}

type CreateWidgetInput struct {
	TenantID         string
	OrganizationName string
}

const (
	defaultBrandColor = "#4f46e5"
	defaultPosition   = "bottom-right"
	defaultZIndex     = 2147483000
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func New(db *database.Database) *Service {
	return &Service{
		repo: NewDynamoRepository(db),
		now:  time.Now,
	}
}

func NewWithRepository(repo Repository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo: repo,
		now:  now,
	}
}

// PublicConfig is served unauthenticated to any embedding page.
func (s *Service) PublicConfig(ctx context.Context, widgetID string) (Config, error) {
	widgetID = strings.TrimSpace(widgetID)
	if widgetID == "" {
		return Config{}, newError(ErrorCodeValidation, "widgetId is required", nil)
	}

	widget, err := s.repo.GetWidget(ctx, widgetID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Config{}, newError(ErrorCodeNotFound, "widget not found", err)
		}
		return Config{}, newError(ErrorCodeInternal, "failed to load widget", err)
	}

	return configFromItem(widget), nil
}

func (s *Service) GetSettings(ctx context.Context, identity Identity, widgetID string) (model.WidgetItem, error) {
	if identity.AgentID == "" {
		return model.WidgetItem{}, newError(ErrorCodeUnauthorized, "invalid agent identity", nil)
	}
	widgetID = strings.TrimSpace(widgetID)
	if widgetID == "" {
		return model.WidgetItem{}, newError(ErrorCodeValidation, "widgetId is required", nil)
	}

	widget, err := s.repo.GetWidget(ctx, widgetID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.WidgetItem{}, newError(ErrorCodeNotFound, "widget not found", err)
		}
		return model.WidgetItem{}, newError(ErrorCodeInternal, "failed to load widget", err)
	}
	return widget, nil
}

func (s *Service) UpdateSettings(ctx context.Context, identity Identity, widgetID string, input SettingsInput) (model.WidgetItem, error) {
	widget, err := s.GetSettings(ctx, identity, widgetID)
	if err != nil {
		return model.WidgetItem{}, err
	}

	if input.OrganizationName != nil {
		name := strings.TrimSpace(*input.OrganizationName)
		if name == "" {
			return model.WidgetItem{}, newError(ErrorCodeValidation, "organization name cannot be empty", nil)
		}
		widget.OrganizationName = name
	}
	if input.BrandColor != nil {
		color := strings.TrimSpace(*input.BrandColor)
		if !isValidHexColor(color) {
			return model.WidgetItem{}, newError(ErrorCodeValidation, "brand color must be a hex value", nil)
		}
		widget.BrandColor = color
	}
	if input.Position != nil {
		position := strings.TrimSpace(*input.Position)
		if position != "bottom-right" && position != "bottom-left" {
			return model.WidgetItem{}, newError(ErrorCodeValidation, "position must be bottom-right or bottom-left", nil)
		}
		widget.Position = position
	}
	if input.GreetingText != nil {
		widget.GreetingText = strings.TrimSpace(*input.GreetingText)
	}
	if input.ShowLauncher != nil {
		widget.ShowLauncher = *input.ShowLauncher
	}
	if input.AutoOpen != nil {
		widget.AutoOpen = *input.AutoOpen
	}
	if input.ZIndex != nil {
		if *input.ZIndex < 0 {
			return model.WidgetItem{}, newError(ErrorCodeValidation, "zIndex cannot be negative", nil)
		}
		widget.ZIndex = *input.ZIndex
	}

	widget.UpdatedAt = s.now().UTC().Format(time.RFC3339)

	if err := s.repo.PutWidget(ctx, widget); err != nil {
		return model.WidgetItem{}, newError(ErrorCodeInternal, "failed to persist widget", err)
	}
	return widget, nil
}

func (s *Service) CreateWidget(ctx context.Context, identity Identity, input CreateWidgetInput) (model.WidgetItem, error) {
	if identity.AgentID == "" {
		return model.WidgetItem{}, newError(ErrorCodeUnauthorized, "invalid agent identity", nil)
	}

	tenantID := strings.TrimSpace(input.TenantID)
	name := strings.TrimSpace(input.OrganizationName)
	if tenantID == "" {
		return model.WidgetItem{}, newError(ErrorCodeValidation, "tenantId is required", nil)
	}
	if name == "" {
		return model.WidgetItem{}, newError(ErrorCodeValidation, "organization name is required", nil)
	}

	nowStr := s.now().UTC().Format(time.RFC3339)
	widget := model.WidgetItem{
		WidgetID:         utils.GenerateWidgetID(),
		TenantID:         tenantID,
		OrganizationName: name,
		BrandColor:       defaultBrandColor,
		Position:         defaultPosition,
		ShowLauncher:     true,
		AutoOpen:         false,
		ZIndex:           defaultZIndex,
		CreatedAt:        nowStr,
		UpdatedAt:        nowStr,
	}

	if err := s.repo.PutWidget(ctx, widget); err != nil {
		return model.WidgetItem{}, newError(ErrorCodeInternal, "failed to persist widget", err)
	}
	return widget, nil
}

func configFromItem(widget model.WidgetItem) Config {
	return Config{
		OrganizationName: widget.OrganizationName,
		BrandColor:       widget.BrandColor,
		Position:         widget.Position,
		GreetingText:     widget.GreetingText,
		ShowLauncher:     widget.ShowLauncher,
		AutoOpen:         widget.AutoOpen,
		ZIndex:           widget.ZIndex,
	}
}

func isValidHexColor(color string) bool {
	if len(color) != 4 && len(color) != 7 {
		return false
	}
	if color[0] != '#' {
		return false
	}
	for _, c := range color[1:] {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
