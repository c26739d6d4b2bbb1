package seed

import (
	"context"
	"fmt"
	"log/slog"

	"inkpost/internal/middleware"
	"inkpost/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	Users               int
	Posts               int
	CommentsPerPost     int
	VisitorLikesPerPost int
	// ReplyPercent is the chance, 0-100, that a comment answers an earlier one.
	ReplyPercent int
	RandSeed     int64
	SkipBcrypt   bool
}

// DefaultOptions seeds a small but lively dataset.
func DefaultOptions() Options {
	return Options{
		Users:               20,
		Posts:               40,
		CommentsPerPost:     8,
		VisitorLikesPerPost: 5,
		ReplyPercent:        40,
	}
}

// Summary reports what a run created.
type Summary struct {
	Users    int
	Posts    int
	Comments int
	Likes    int
}

// Seeder populates the database with demo data.
type Seeder struct {
	db      *gorm.DB
	opts    Options
	factory *Factory
}

// NewSeeder creates a Seeder for db.
func NewSeeder(db *gorm.DB, opts Options) (*Seeder, error) {
	factory, err := NewFactory(db, opts.RandSeed, opts.SkipBcrypt)
	if err != nil {
		return nil, err
	}
	return &Seeder{db: db, opts: opts, factory: factory}, nil
}

// ClearAll removes every like, comment, post and account, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	for _, model := range []any{&models.Like{}, &models.Comment{}, &models.Post{}, &models.User{}} {
		if err := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	middleware.Logger.Info("Seed data cleared")
	return nil
}

// Run creates accounts, then posts with threaded comments, then likes from
// both accounts and anonymous visitors.
func (s *Seeder) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{}

	users := make([]*models.User, 0, s.opts.Users)
	for i := 0; i < s.opts.Users; i++ {
		u, err := s.factory.CreateUser(ctx)
		if err != nil {
			return summary, err
		}
		users = append(users, u)
	}
	summary.Users = len(users)
	if len(users) == 0 {
		return summary, nil
	}

	for i := 0; i < s.opts.Posts; i++ {
		author := users[s.factory.intn(len(users))]
		post, err := s.factory.CreatePost(ctx, author)
		if err != nil {
			return summary, err
		}
		summary.Posts++

		created, err := s.seedThread(ctx, users, post)
		summary.Comments += created
		if err != nil {
			return summary, err
		}

		liked, err := s.seedLikes(ctx, users, post)
		summary.Likes += liked
		if err != nil {
			return summary, err
		}
	}

	middleware.Logger.Info("Seed complete",
		slog.Int("users", summary.Users),
		slog.Int("posts", summary.Posts),
		slog.Int("comments", summary.Comments),
		slog.Int("likes", summary.Likes),
	)
	return summary, nil
}

func (s *Seeder) seedThread(ctx context.Context, users []*models.User, post *models.Post) (int, error) {
	ids := make([]uint, 0, s.opts.CommentsPerPost)
	for i := 0; i < s.opts.CommentsPerPost; i++ {
		var parentID *uint
		if len(ids) > 0 && s.factory.intn(100) < s.opts.ReplyPercent {
			parent := ids[s.factory.intn(len(ids))]
			parentID = &parent
		}
		c, err := s.factory.CreateComment(ctx, users[s.factory.intn(len(users))], post, parentID)
		if err != nil {
			return len(ids), err
		}
		ids = append(ids, c.ID)
	}
	return len(ids), nil
}

func (s *Seeder) seedLikes(ctx context.Context, users []*models.User, post *models.Post) (int, error) {
	liked := 0
	// each account likes a post at most once; start at a random offset
	count := s.factory.intn(len(users) + 1)
	start := s.factory.intn(len(users))
	for i := 0; i < count; i++ {
		u := users[(start+i)%len(users)]
		if err := s.factory.Like(ctx, models.Principal{UserID: u.ID}, post); err != nil {
			return liked, err
		}
		liked++
	}
	for i := 0; i < s.opts.VisitorLikesPerPost; i++ {
		if err := s.factory.Like(ctx, s.factory.VisitorIdentity(), post); err != nil {
			return liked, err
		}
		liked++
	}
	return liked, nil
}
