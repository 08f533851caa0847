package domain

// Application represents a registered application in the applications table
type Application struct {
	ApplicationID   string `dynamodbav:"application_id" json:"application_id"`
	ApplicationName string `dynamodbav:"application_name" json:"application_name"`
	Description     string `dynamodbav:"description" json:"description,omitempty"`
	CreatedAt       string `dynamodbav:"created_at" json:"created_at,omitempty"`
	UpdatedAt       string `dynamodbav:"updated_at" json:"updated_at,omitempty"`
}
