package model

// AllModels lists the gorm models to migrate
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Bot{},
		&APIKey{},
	}
}
