// Package testutil provides in-memory stores and fixtures for package tests.
package testutil

import (
	"fmt"
	"os"
	"testing"
	"time"

	"anoa.com/socialfeed/internal/bootstrap"
	"anoa.com/socialfeed/internal/entity"
	"anoa.com/socialfeed/pkg/database"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteDB opens a private in-memory database with the full schema.
// A single connection serializes concurrent transactions the way row
// locks would on Postgres.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	cfg := database.Config()
	cfg.Logger = logger.Default.LogMode(logger.Silent)
	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, bootstrap.Migrate(db))
	return db
}

// NewPostgresDB connects to TEST_DATABASE_URL and migrates it. The test is
// skipped when the variable is unset. Callers clean up their own rows.
func NewPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := database.Connect(dsn)
	require.NoError(t, err)
	db.Logger = logger.Default.LogMode(logger.Silent)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(20)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, bootstrap.Migrate(db))
	return db
}

// NewMockDB returns a postgres-dialect gorm handle over sqlmock.
func NewMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return db, mock
}

// Clock hands out strictly increasing UTC timestamps with microsecond
// precision, one step per call.
type Clock struct {
	current time.Time
	step    time.Duration
}

func NewClock() *Clock {
	return &Clock{
		current: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		step:    time.Second,
	}
}

func (c *Clock) Now() time.Time {
	c.current = c.current.Add(c.step)
	return c.current
}

func CreateUser(t *testing.T, db *gorm.DB, username string, isAdmin bool) *entity.User {
	t.Helper()
	user := &entity.User{
		Username:     username,
		DisplayName:  username,
		PasswordHash: "x",
		IsAdmin:      isAdmin,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func CreatePost(t *testing.T, db *gorm.DB, author uuid.UUID, content string, at time.Time) *entity.Post {
	t.Helper()
	post := &entity.Post{
		UserID:    author,
		Content:   content,
		CreatedAt: at,
	}
	require.NoError(t, db.Create(post).Error)
	return post
}

func CreateComment(t *testing.T, db *gorm.DB, author, parent uuid.UUID, content string, at time.Time) *entity.Post {
	t.Helper()
	comment := &entity.Post{
		UserID:    author,
		Content:   content,
		ParentID:  &parent,
		IsComment: true,
		CreatedAt: at,
	}
	require.NoError(t, db.Create(comment).Error)
	return comment
}

// Reload returns the stored copy of a post.
func Reload(t *testing.T, db *gorm.DB, id uuid.UUID) *entity.Post {
	t.Helper()
	var post entity.Post
	require.NoError(t, db.First(&post, "id = ?", id).Error)
	return &post
}
