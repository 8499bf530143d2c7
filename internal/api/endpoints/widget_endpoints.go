package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"

	"reflet-widget/internal/dto"
	"reflet-widget/internal/model"
	"reflet-widget/internal/service/widgetcfg"
)

type WidgetEndpoints interface {
	WidgetSettings(http.ResponseWriter, *http.Request) error
	CreateWidget(http.ResponseWriter, *http.Request) error
}

type widgetEndpoints struct {
	service *widgetcfg.Service
}

func NewWidgetEndpoints(service *widgetcfg.Service) WidgetEndpoints {
	return &widgetEndpoints{
		service: service,
	}
}

func (h *widgetEndpoints) WidgetSettings(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet:   h.handleGetWidgetSettings,
		http.MethodPatch: h.handleUpdateWidgetSettings,
	})
}

func (h *widgetEndpoints) CreateWidget(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleCreateWidget,
	})
}

func (h *widgetEndpoints) handleGetWidgetSettings(w http.ResponseWriter, r *http.Request) error {
	identity, err := widgetIdentity(r)
	if err != nil {
		return err
	}

	widget, err := h.service.GetSettings(r.Context(), identity, r.URL.Query().Get("widgetId"))
	if err != nil {
		return mapWidgetServiceError(err)
	}

	return WriteJSON(w, http.StatusOK, dto.WidgetSettingsResultResponse{
		Widget: widgetSettingsResult(widget),
	})
}

func (h *widgetEndpoints) handleUpdateWidgetSettings(w http.ResponseWriter, r *http.Request) error {
	identity, err := widgetIdentity(r)
	if err != nil {
		return err
	}

	var req dto.UpdateWidgetSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode widget settings request: %w", err),
		}
	}

	widget, err := h.service.UpdateSettings(r.Context(), identity, r.URL.Query().Get("widgetId"), widgetcfg.SettingsInput{
		OrganizationName: req.OrganizationName,
		BrandColor:       req.BrandColor,
		Position:         req.Position,
		GreetingText:     req.GreetingText,
		ShowLauncher:     req.ShowLauncher,
		AutoOpen:         req.AutoOpen,
		ZIndex:           req.ZIndex,
	})
	if err != nil {
		return mapWidgetServiceError(err)
	}

	return WriteJSON(w, http.StatusOK, dto.WidgetSettingsResultResponse{
		Widget: widgetSettingsResult(widget),
	})
}

func (h *widgetEndpoints) handleCreateWidget(w http.ResponseWriter, r *http.Request) error {
	identity, err := widgetIdentity(r)
	if err != nil {
		return err
	}

	var req dto.CreateWidgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode create widget request: %w", err),
		}
	}

	widget, err := h.service.CreateWidget(r.Context(), identity, widgetcfg.CreateWidgetInput{
		TenantID:         req.TenantID,
		OrganizationName: req.OrganizationName,
	})
	if err != nil {
		return mapWidgetServiceError(err)
	}

	return WriteJSON(w, http.StatusCreated, dto.WidgetSettingsResultResponse{
		Widget: widgetSettingsResult(widget),
	})
}

func widgetIdentity(r *http.Request) (widgetcfg.Identity, error) {
	identity, err := agentIdentity(r)
	if err != nil {
		return widgetcfg.Identity{}, &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Unauthorized",
			ErrorLog:   err,
		}
	}
	return widgetcfg.Identity{
		AgentID: identity.AgentID,
		Email:   identity.Email,
	}, nil
}

func widgetSettingsResult(widget model.WidgetItem) dto.WidgetSettingsResult {
	return dto.WidgetSettingsResult{
		WidgetID:         widget.WidgetID,
		TenantID:         widget.TenantID,
		OrganizationName: widget.OrganizationName,
		BrandColor:       widget.BrandColor,
		Position:         widget.Position,
		GreetingText:     widget.GreetingText,
		ShowLauncher:     widget.ShowLauncher,
		AutoOpen:         widget.AutoOpen,
		ZIndex:           widget.ZIndex,
		CreatedAt:        widget.CreatedAt,
		UpdatedAt:        widget.UpdatedAt,
	}
}

func mapWidgetServiceError(err error) error {
	svcErr, ok := err.(*widgetcfg.Error)
	if !ok {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   err,
		}
	}

	status := http.StatusInternalServerError
	switch svcErr.Code {
	case widgetcfg.ErrorCodeValidation:
		status = http.StatusBadRequest
	case widgetcfg.ErrorCodeUnauthorized:
		status = http.StatusUnauthorized
	case widgetcfg.ErrorCodeNotFound:
		status = http.StatusNotFound
	}

	return &HTTPError{
		StatusCode: status,
		Message:    svcErr.Message,
		ErrorLog:   svcErr,
	}
}
