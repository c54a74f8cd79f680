package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/ressKim-io/stance-classifier/internal/domain/entity"
	"github.com/ressKim-io/stance-classifier/internal/domain/repository"
)

// tweetBatchSize bounds the rows per INSERT statement
const tweetBatchSize = 500

type classificationRepository struct {
	db *gorm.DB
}

// NewClassificationRepository creates a new classification repository
func NewClassificationRepository(db *gorm.DB) repository.ClassificationRepository {
	return &classificationRepository{db: db}
}

func (r *classificationRepository) CreateRun(ctx context.Context, run *entity.ClassificationRun) error {
	return r.db.WithContext(ctx).Omit("Tweets").Create(run).Error
}

func (r *classificationRepository) UpdateRun(ctx context.Context, run *entity.ClassificationRun) error {
	return r.db.WithContext(ctx).Omit("Tweets").Save(run).Error
}

func (r *classificationRepository) CreateTweets(ctx context.Context, tweets []*entity.ClassifiedTweet) error {
	if len(tweets) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(tweets, tweetBatchSize).Error
	})
}
