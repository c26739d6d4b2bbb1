// Package seed provides helpers to create demo data for the engagement
// database: accounts, posts, threaded discussions and likes. These helpers
// are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"strings"

	"inkpost/internal/models"
	"inkpost/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "password123"

// Factory builds domain entities and persists them to the database.
// Comments and likes go through the repositories so the seeded data keeps
// the same invariants as live traffic, likes_count included.
type Factory struct {
	db       *gorm.DB
	faker    *gofakeit.Faker
	comments repository.CommentRepository
	likes    repository.LikeLedger
	password string
}

// NewFactory creates a Factory bound to db. A zero randSeed picks a random
// one; any other value makes the generated content reproducible.
func NewFactory(db *gorm.DB, randSeed int64, skipBcrypt bool) (*Factory, error) {
	password := DefaultPassword
	if !skipBcrypt {
		hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash seed password: %w", err)
		}
		password = string(hashed)
	}
	return &Factory{
		db:       db,
		faker:    gofakeit.New(randSeed),
		comments: repository.NewCommentRepository(db),
		likes:    repository.NewLikeLedger(db),
		password: password,
	}, nil
}

// CreateUser constructs and persists a sample account.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	user := &models.User{
		Username:  fmt.Sprintf("%s%d", f.faker.Username(), f.faker.Number(100, 999)),
		Email:     f.faker.Email(),
		Password:  f.password,
		AvatarURL: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID()),
		Role:      models.RoleUser,
	}
	for _, override := range overrides {
		override(user)
	}
	if err := f.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("create user %s: %w", user.Username, err)
	}
	return user, nil
}

// CreatePost persists a published post owned by author.
func (f *Factory) CreatePost(ctx context.Context, author *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	title := strings.TrimSuffix(f.faker.Sentence(5), ".")
	post := &models.Post{
		Title:       title,
		Slug:        fmt.Sprintf("%s-%s", slugify(title), f.faker.UUID()[:8]),
		Content:     f.faker.Paragraph(2, 4, 12, "\n\n"),
		UserID:      author.ID,
		IsPublished: true,
	}
	for _, override := range overrides {
		override(post)
	}
	if err := f.db.WithContext(ctx).Create(post).Error; err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

// CreateComment persists an approved comment, optionally as a reply.
func (f *Factory) CreateComment(ctx context.Context, author *models.User, post *models.Post, parentID *uint) (*models.Comment, error) {
	comment := &models.Comment{
		Content:    f.faker.Sentence(f.faker.Number(4, 20)),
		UserID:     author.ID,
		PostID:     post.ID,
		ParentID:   parentID,
		IsApproved: true,
	}
	if err := f.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// Like records a like through the ledger, bumping the post counter.
func (f *Factory) Like(ctx context.Context, id models.Identity, post *models.Post) error {
	return f.likes.Add(ctx, models.NewLike(id, post.ID, f.faker.IPv4Address(), f.faker.CountryAbr()))
}

// VisitorIdentity returns an anonymous identity with a fresh token.
func (f *Factory) VisitorIdentity() models.Identity {
	return models.Visitor{Token: f.faker.UUID()}
}

// intn returns a pseudo-random int in [0, n).
func (f *Factory) intn(n int) int {
	if n <= 1 {
		return 0
	}
	return f.faker.Number(0, n-1)
}

func slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
