package models

// EmailChannel holds SMTP credentials for a tenant.
type EmailChannel struct {
	Host     string `json:"host"               validate:"required"`
	Port     int    `json:"port"               validate:"required,min=1,max=65535"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	From     string `json:"from"               validate:"required,email"`
}

// WhatsAppChannel holds WhatsApp Business Cloud API credentials.
type WhatsAppChannel struct {
	APIURL        string `json:"api_url"                        validate:"required,url"`
	PhoneNumberID string `json:"phone_number_id"                validate:"required"`
	AccessToken   string `json:"access_token"                   validate:"required"`
	// DefaultRegion is the ISO 3166-1 alpha-2 region of numbers written
	// without an international prefix.
	DefaultRegion string `json:"default_region,omitempty" validate:"omitempty,iso3166_1_alpha2"`
}

// CalendarChannel points at a calendar service accepting JSON events.
type CalendarChannel struct {
	EndpointURL string `json:"endpoint_url"    validate:"required,url"`
	Token       string `json:"token,omitempty"`
}

// ChannelConfig is the per-user notification configuration. A nil channel
// means the channel is unavailable for that user.
type ChannelConfig struct {
	UserID   string           `json:"user_id"`
	Email    *EmailChannel    `json:"email,omitempty"    validate:"omitempty"`
	WhatsApp *WhatsAppChannel `json:"whatsapp,omitempty" validate:"omitempty"`
	Calendar *CalendarChannel `json:"calendar,omitempty" validate:"omitempty"`
}
