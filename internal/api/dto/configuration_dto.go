package dto

// SetConfigurationRequest payload.
type SetConfigurationRequest struct {
	Value string `json:"value"`
}

// ConfigurationResponse returns one setting.
type ConfigurationResponse struct {
	EntityType string `json:"entity_type"`
	Value      string `json:"value"`
}
