package domain

// ValueOrigin tells the client where a resolved remote config value came from
type ValueOrigin string

const (
	OriginReferenceValue ValueOrigin = "reference_value"
	OriginABTest         ValueOrigin = "abtest"
)

// RemoteConfig is a remotely managed application setting
type RemoteConfig struct {
	ID             string `dynamodbav:"ID" json:"id"`
	Name           string `dynamodbav:"name" json:"name"`
	ApplicationID  string `dynamodbav:"application_ID" json:"application_id"`
	Active         int    `dynamodbav:"active" json:"active"`
	ReferenceValue string `dynamodbav:"reference_value" json:"reference_value"`
}

// Experiment is an A/B test running against a remote config
type Experiment struct {
	ID                string   `dynamodbav:"ID" json:"id"`
	RemoteConfigID    string   `dynamodbav:"remote_config_ID" json:"remote_config_id"`
	Active            int      `dynamodbav:"active" json:"active"`
	Paused            bool     `dynamodbav:"paused" json:"paused"`
	TargetUserPercent float64  `dynamodbav:"target_user_percent" json:"target_user_percent"`
	Variants          []string `dynamodbav:"variants" json:"variants"`
}

// Running reports whether the experiment is active and not paused
func (e Experiment) Running() bool {
	return e.Active == 1 && !e.Paused
}

// UserAssignment is the sticky decision taken for a user in an experiment
type UserAssignment struct {
	UserID       string `dynamodbav:"uid" json:"uid"`
	ExperimentID string `dynamodbav:"abtest_ID" json:"abtest_id"`
	IsInTest     bool   `dynamodbav:"is_in_test" json:"is_in_test"`
	Value        string `dynamodbav:"value" json:"value"`
}

// Origin derives the value origin from the assignment's test group
func (a UserAssignment) Origin() ValueOrigin {
	if a.IsInTest {
		return OriginABTest
	}
	return OriginReferenceValue
}

// ResolvedValue is the effective value of a remote config for a user
type ResolvedValue struct {
	Value       string      `json:"value"`
	ValueOrigin ValueOrigin `json:"value_origin"`
}
