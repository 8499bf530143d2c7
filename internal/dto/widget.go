package dto

type WidgetSettingsResult struct {
	WidgetID         string `json:"widgetId"`
	TenantID         string `json:"tenantId"`
	OrganizationName string `json:"organizationName"`
	BrandColor       string `json:"brandColor"`
	Position         string `json:"position"`
	GreetingText     string `json:"greetingText,omitempty"`
	ShowLauncher     bool   `json:"showLauncher"`
	AutoOpen         bool   `json:"autoOpen"`
	ZIndex           int    `json:"zIndex"`
	CreatedAt        string `json:"createdAt"`
	UpdatedAt        string `json:"updatedAt"`
}

type WidgetSettingsResultResponse struct {
	Widget WidgetSettingsResult `json:"widget"`
}

type UpdateWidgetSettingsRequest struct {
	OrganizationName *string `json:"organizationName,omitempty"`
	BrandColor       *string `json:"brandColor,omitempty"`
	Position         *string `json:"position,omitempty"`
	GreetingText     *string `json:"greetingText,omitempty"`
	ShowLauncher     *bool   `json:"showLauncher,omitempty"`
	AutoOpen         *bool   `json:"autoOpen,omitempty"`
	ZIndex           *int    `json:"zIndex,omitempty"`
}

type CreateWidgetRequest struct {
	TenantID         string `json:"tenantId"`
	OrganizationName string `json:"organizationName"`
}
