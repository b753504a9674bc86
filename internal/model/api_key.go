package model

import "time"

// APIKey is an exchange credential stored for a user. The secret is kept
// encrypted and never leaves the service in clear text.
type APIKey struct {
	ID              string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID          string    `json:"userId" gorm:"type:varchar(36);not null;uniqueIndex:idx_api_key_owner"`
	Exchange        string    `json:"exchange" gorm:"size:64;not null;uniqueIndex:idx_api_key_owner"`
	Label           string    `json:"label" gorm:"size:64;not null;uniqueIndex:idx_api_key_owner"`
	APIKey          string    `json:"apiKey" gorm:"size:256;not null"`
	EncryptedSecret string    `json:"-" gorm:"not null"`
	IsActive        bool      `json:"isActive" gorm:"not null;default:true"`
	CreatedAt       time.Time `json:"createdAt"`
}

// TableName pins the gorm table name
func (APIKey) TableName() string {
	return "api_keys"
}

// APIKeyRequest represents API key creation request
type APIKeyRequest struct {
	Exchange  string `json:"exchange" binding:"required,max=64"`
	APIKey    string `json:"apiKey" binding:"required"`
	SecretKey string `json:"secretKey" binding:"required"`
	Label     string `json:"label" binding:"max=64"`
	IsActive  *bool  `json:"isActive"`
}

// APIKeyResponse is the masked view returned to clients
type APIKeyResponse struct {
	ID        string    `json:"id"`
	Exchange  string    `json:"exchange"`
	Label     string    `json:"label"`
	APIKey    string    `json:"apiKey"`
	SecretKey string    `json:"secretKey"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// APIKeyValidateRequest asks whether a credential pair is accepted
type APIKeyValidateRequest struct {
	Exchange  string `json:"exchange" binding:"required"`
	APIKey    string `json:"apiKey" binding:"required"`
	SecretKey string `json:"secretKey" binding:"required"`
}
