package config

import (
	"github.com/spf13/viper"
)

// RequiredVars must all be set for the report script to work.
var RequiredVars = []string{"TABLEAU_PAT_NAME", "TABLEAU_PAT_SECRET", "SLACK_BOT_TOKEN", "SLACK_CHANNEL"}

// OptionalVars are surfaced in the service status, their values are not secret.
var OptionalVars = []string{"TABLEAU_SERVER_URL", "TABLEAU_SITE_ID", "SLACK_TEAM_NAME"}

// NotSet is reported in place of an unset optional variable.
const NotSet = "Not set"

// Environment reads the report script's variables from the process environment on every call.
//
// A variable set to the empty string counts as unset. Values of required variables are never exposed.
type Environment struct {
	v *viper.Viper
}

// NewEnvironment returns an Environment backed by the live process environment.
func NewEnvironment() *Environment {
	v := viper.New()
	v.AutomaticEnv()
	return &Environment{v: v}
}

func (e *Environment) isSet(key string) bool {
	return e.v.GetString(key) != ""
}

// MissingRequired returns the names of the unset required variables, in declaration order.
func (e *Environment) MissingRequired() []string {
	var missing []string
	for _, key := range RequiredVars {
		if !e.isSet(key) {
			missing = append(missing, key)
		}
	}
	return missing
}

// RequiredSet returns how many of the required variables are set.
func (e *Environment) RequiredSet() int {
	return len(RequiredVars) - len(e.MissingRequired())
}

// Optional returns the value of each optional variable, or NotSet.
func (e *Environment) Optional() map[string]string {
	values := make(map[string]string, len(OptionalVars))
	for _, key := range OptionalVars {
		value := e.v.GetString(key)
		if value == "" {
			value = NotSet
		}
		values[key] = value
	}
	return values
}
