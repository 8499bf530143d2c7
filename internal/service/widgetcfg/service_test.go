package widgetcfg

import (
	"context"
	"strings"
	"testing"
	"time"

	"reflet-widget/internal/model"
)

type memoryRepository struct {
	widgets map[string]model.WidgetItem
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{widgets: make(map[string]model.WidgetItem)}
}

func (r *memoryRepository) GetWidget(ctx context.Context, widgetID string) (model.WidgetItem, error) {
	widget, ok := r.widgets[widgetID]
	if !ok {
		return model.WidgetItem{}, ErrNotFound
	}
	return widget, nil
}

func (r *memoryRepository) PutWidget(ctx context.Context, widget model.WidgetItem) error {
	r.widgets[widget.WidgetID] = widget
	return nil
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
}

func newTestService() (*Service, *memoryRepository) {
	repo := newMemoryRepository()
	return NewWithRepository(repo, fixedNow), repo
}

var agent = Identity{AgentID: "agent-1", Email: "agent@acme.test"}

func TestCreateWidgetAppliesDefaults(t *testing.T) {
	svc, _ := newTestService()

	widget, err := svc.CreateWidget(context.Background(), agent, CreateWidgetInput{
		TenantID:         "tenant-1",
		OrganizationName: "  Acme  ",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if !strings.HasPrefix(widget.WidgetID, "wgt_") {
		t.Fatalf("unexpected widget id %q", widget.WidgetID)
	}
	if widget.OrganizationName != "Acme" {
		t.Fatalf("expected trimmed name, got %q", widget.OrganizationName)
	}
	if widget.BrandColor != defaultBrandColor || widget.Position != defaultPosition || widget.ZIndex != defaultZIndex {
		t.Fatalf("defaults not applied: %+v", widget)
	}
	if !widget.ShowLauncher || widget.AutoOpen {
		t.Fatalf("expected launcher on and autoOpen off, got %+v", widget)
	}
}

func TestCreateWidgetValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateWidget(ctx, Identity{}, CreateWidgetInput{TenantID: "t", OrganizationName: "n"})
	assertCode(t, err, ErrorCodeUnauthorized)

	_, err = svc.CreateWidget(ctx, agent, CreateWidgetInput{OrganizationName: "n"})
	assertCode(t, err, ErrorCodeValidation)

	_, err = svc.CreateWidget(ctx, agent, CreateWidgetInput{TenantID: "t"})
	assertCode(t, err, ErrorCodeValidation)
}

func TestPublicConfigMapsWidget(t *testing.T) {
	svc, repo := newTestService()
	repo.widgets["wgt_1"] = model.WidgetItem{
		WidgetID:         "wgt_1",
		OrganizationName: "Acme",
		BrandColor:       "#123abc",
		Position:         "bottom-left",
		GreetingText:     "Hi!",
		ShowLauncher:     true,
		AutoOpen:         true,
		ZIndex:           42,
	}

	cfg, err := svc.PublicConfig(context.Background(), "wgt_1")
	if err != nil {
		t.Fatalf("public config: %v", err)
	}
	if cfg.OrganizationName != "Acme" || cfg.BrandColor != "#123abc" || cfg.Position != "bottom-left" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if !cfg.AutoOpen || cfg.ZIndex != 42 {
		t.Fatalf("unexpected config %+v", cfg)
	}

	_, err = svc.PublicConfig(context.Background(), "wgt_missing")
	assertCode(t, err, ErrorCodeNotFound)
}

func TestUpdateSettingsPartialUpdate(t *testing.T) {
	svc, repo := newTestService()
	repo.widgets["wgt_1"] = model.WidgetItem{
		WidgetID:         "wgt_1",
		OrganizationName: "Acme",
		BrandColor:       defaultBrandColor,
		Position:         defaultPosition,
		ShowLauncher:     true,
	}

	color := "#ff0000"
	autoOpen := true
	updated, err := svc.UpdateSettings(context.Background(), agent, "wgt_1", SettingsInput{
		BrandColor: &color,
		AutoOpen:   &autoOpen,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if updated.BrandColor != "#ff0000" || !updated.AutoOpen {
		t.Fatalf("updates not applied: %+v", updated)
	}
	if updated.OrganizationName != "Acme" || updated.Position != defaultPosition {
		t.Fatalf("untouched fields changed: %+v", updated)
	}
	if updated.UpdatedAt != fixedNow().Format(time.RFC3339) {
		t.Fatalf("updatedAt not set: %q", updated.UpdatedAt)
	}
}

func TestUpdateSettingsValidation(t *testing.T) {
	svc, repo := newTestService()
	repo.widgets["wgt_1"] = model.WidgetItem{WidgetID: "wgt_1", OrganizationName: "Acme"}
	ctx := context.Background()

	badColor := "red"
	_, err := svc.UpdateSettings(ctx, agent, "wgt_1", SettingsInput{BrandColor: &badColor})
	assertCode(t, err, ErrorCodeValidation)

	badPosition := "top-left"
	_, err = svc.UpdateSettings(ctx, agent, "wgt_1", SettingsInput{Position: &badPosition})
	assertCode(t, err, ErrorCodeValidation)

	empty := "  "
	_, err = svc.UpdateSettings(ctx, agent, "wgt_1", SettingsInput{OrganizationName: &empty})
	assertCode(t, err, ErrorCodeValidation)

	negative := -1
	_, err = svc.UpdateSettings(ctx, agent, "wgt_1", SettingsInput{ZIndex: &negative})
	assertCode(t, err, ErrorCodeValidation)
}

func TestHexColorValidation(t *testing.T) {
	valid := []string{"#fff", "#FFF", "#4f46e5", "#000000"}
	for _, color := range valid {
		if !isValidHexColor(color) {
			t.Fatalf("expected %q valid", color)
		}
	}

	invalid := []string{"", "fff", "#ff", "#fffff", "#gggggg", "#12345g"}
	for _, color := range invalid {
		if isValidHexColor(color) {
			t.Fatalf("expected %q invalid", color)
		}
	}
}

func assertCode(t *testing.T, err error, want ErrorCode) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	svcErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if svcErr.Code != want {
		t.Fatalf("expected code %s, got %s", want, svcErr.Code)
	}
}
