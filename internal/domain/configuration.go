package domain

// ConfigurationEntityType names a setting held in the configuration store.
type ConfigurationEntityType string

const (
	ConfigurationEntityTeamID          ConfigurationEntityType = "TeamId"
	ConfigurationEntityKnowledgeBaseID ConfigurationEntityType = "KnowledgeBaseId"
	ConfigurationEntityWelcomeMessage  ConfigurationEntityType = "WelcomeMessageText"
	ConfigurationEntityHelpTabText     ConfigurationEntityType = "HelpTabText"
)

// ParseConfigurationEntityType accepts the entity names exactly as stored.
func ParseConfigurationEntityType(name string) (ConfigurationEntityType, bool) {
	switch t := ConfigurationEntityType(name); t {
	case ConfigurationEntityTeamID, ConfigurationEntityKnowledgeBaseID, ConfigurationEntityWelcomeMessage, ConfigurationEntityHelpTabText:
		return t, true
	default:
		return "", false
	}
}
