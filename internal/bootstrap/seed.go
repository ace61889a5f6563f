package bootstrap

import (
	"errors"

	"anoa.com/socialfeed/internal/entity"
	"anoa.com/socialfeed/pkg/logger"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.Post{},
		&entity.Like{},
		&entity.Repost{},
		&entity.Notification{},
	)
}

type seedUser struct {
	Username    string
	DisplayName string
	Password    string
	IsAdmin     bool
}

var developmentUsers = []seedUser{
	{Username: "admin", DisplayName: "Administrator", Password: "admin123", IsAdmin: true},
	{Username: "alice", DisplayName: "Alice", Password: "alice123"},
	{Username: "bob", DisplayName: "Bob", Password: "bob12345"},
}

// SeedDevelopmentUsers creates the local accounts once. Existing usernames
// are left untouched.
func SeedDevelopmentUsers(db *gorm.DB) error {
	for _, su := range developmentUsers {
		var existing entity.User
		err := db.Where("LOWER(username) = LOWER(?)", su.Username).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(su.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		user := entity.User{
			Username:     su.Username,
			DisplayName:  su.DisplayName,
			PasswordHash: string(hashed),
			IsAdmin:      su.IsAdmin,
		}
		if err := db.Create(&user).Error; err != nil {
			return err
		}
		logger.L().Info("seeded user", "username", su.Username, "admin", su.IsAdmin)
	}

	return nil
}
