package model

// WidgetItem holds the per-widget presentation and behaviour settings the
// embed fetches once at initialisation. One tenant can own several widgets.
type WidgetItem struct {
	WidgetID         string `dynamodbav:"widgetId"`
	TenantID         string `dynamodbav:"tenantId"`
	OrganizationName string `dynamodbav:"organizationName"`
	BrandColor       string `dynamodbav:"brandColor"`
	Position         string `dynamodbav:"position"`
	GreetingText     string `dynamodbav:"greetingText,omitempty"`
	ShowLauncher     bool   `dynamodbav:"showLauncher"`
	AutoOpen         bool   `dynamodbav:"autoOpen"`
	ZIndex           int    `dynamodbav:"zIndex"`
	CreatedAt        string `dynamodbav:"createdAt"`
	UpdatedAt        string `dynamodbav:"updatedAt"`
}
