package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, snapshot *ScoreSnapshot) error
	// Latest returns the newest snapshot taken across all reporting years.
	// Year-scoped snapshots only appear in History.
	Latest(ctx context.Context, db *gorm.DB, companyID snowflake.ID) (*ScoreSnapshot, error)
	History(ctx context.Context, db *gorm.DB, companyID snowflake.ID, limit int) ([]ScoreSnapshot, error)
}
