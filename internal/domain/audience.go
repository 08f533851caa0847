package domain

import (
	"fmt"
	"strings"
)

// AudienceTypePropertyBased marks audiences matched against user attributes
const AudienceTypePropertyBased = "property_based"

// User identifies the caller of a remote config request and the attributes audiences match on
type User struct {
	ID            string
	ApplicationID string
	Country       string
}

// attribute returns the value of a condition parameter and whether the user carries it
func (u User) attribute(parameter string) (string, bool) {
	switch parameter {
	case "application_ID":
		return u.ApplicationID, true
	case "country":
		return u.Country, true
	default:
		return "", false
	}
}

// Audience is a named segment of users. Property based audiences carry a
// condition of the form "country=FR&application_ID=a1" or "country=FR||country=BE".
type Audience struct {
	Name      string `dynamodbav:"audience_name" json:"audience_name"`
	Type      string `dynamodbav:"type" json:"type"`
	Condition string `dynamodbav:"condition" json:"condition"`
}

// Matches evaluates the audience condition against the user. A condition mixing
// "&" and "||" or holding a term without "=" is invalid.
func (a Audience) Matches(user User) (bool, error) {
	condition := strings.TrimSpace(a.Condition)
	if condition == "" {
		return false, fmt.Errorf("audience %s has an empty condition", a.Name)
	}

	anyOf := strings.Contains(condition, "||")
	if anyOf && strings.Contains(condition, "&") {
		return false, fmt.Errorf("audience %s mixes & and || in one condition", a.Name)
	}

	separator := "&"
	if anyOf {
		separator = "||"
	}

	for _, term := range strings.Split(condition, separator) {
		parameter, value, ok := strings.Cut(term, "=")
		if !ok {
			return false, fmt.Errorf("audience %s has an invalid term %q", a.Name, term)
		}

		actual, known := user.attribute(strings.TrimSpace(parameter))
		matched := known && actual == strings.TrimSpace(value)
		if anyOf && matched {
			return true, nil
		}
		if !anyOf && !matched {
			return false, nil
		}
	}

	return !anyOf, nil
}

// OverrideType tells how a remote config override supplies its value
type OverrideType string

const (
	// OverrideFixed serves OverrideValue as the config value
	OverrideFixed OverrideType = "fixed"
	// OverrideABTest hands the config to its experiment
	OverrideABTest OverrideType = "abtest"
)

// RemoteConfigOverride replaces the reference value of a remote config for one audience
type RemoteConfigOverride struct {
	ID               string       `dynamodbav:"ID" json:"id"`
	RemoteConfigName string       `dynamodbav:"remote_config_name" json:"remote_config_name"`
	AudienceName     string       `dynamodbav:"audience_name" json:"audience_name"`
	Active           int          `dynamodbav:"active" json:"active"`
	OverrideType     OverrideType `dynamodbav:"override_type" json:"override_type"`
	OverrideValue    string       `dynamodbav:"override_value" json:"override_value"`
}
