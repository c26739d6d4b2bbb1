// Package commenttree rebuilds a post's threaded discussion from the flat
// comment log.
package commenttree

import (
	"fmt"
	"strings"
	"time"

	"inkpost/internal/models"
)

// OrphanPolicy decides where a comment goes when its parent is not among
// the input comments (deleted, or belonging to another post).
type OrphanPolicy string

const (
	// OrphanDrop leaves orphans, and with them their replies, out of the forest.
	OrphanDrop OrphanPolicy = "drop"
	// OrphanPromote shows orphans as top-level comments.
	OrphanPromote OrphanPolicy = "promote"
)

// ParseOrphanPolicy validates a configured policy name.
func ParseOrphanPolicy(s string) (OrphanPolicy, error) {
	switch p := OrphanPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case OrphanDrop, OrphanPromote:
		return p, nil
	case "":
		return OrphanPromote, nil
	default:
		return "", fmt.Errorf("unknown orphan policy %q (want drop or promote)", s)
	}
}

// Author is the public view of a comment's writer.
type Author struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

// Node is a comment together with its direct replies.
type Node struct {
	ID         uint      `json:"id"`
	PostID     uint      `json:"post_id"`
	ParentID   *uint     `json:"parent_id"`
	Author     Author    `json:"author"`
	Content    string    `json:"content"`
	IsApproved bool      `json:"is_approved"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Children   []*Node   `json:"children"`
}

// Build arranges comments into a forest. comments must be in ascending
// creation order (ties broken by id); roots and every sibling list keep
// that order. Runs in linear time.
func Build(comments []*models.Comment, policy OrphanPolicy) []*Node {
	nodes := make(map[uint]*Node, len(comments))
	for _, c := range comments {
		nodes[c.ID] = newNode(c)
	}

	roots := make([]*Node, 0)
	for _, c := range comments {
		n := nodes[c.ID]
		if c.ParentID == nil {
			roots = append(roots, n)
			continue
		}
		parent, ok := nodes[*c.ParentID]
		if ok && parent.PostID == n.PostID && parent != n {
			parent.Children = append(parent.Children, n)
			continue
		}
		if policy == OrphanPromote {
			roots = append(roots, n)
		}
	}
	return roots
}

// Count returns the number of nodes in the forest.
func Count(forest []*Node) int {
	total := 0
	for _, n := range forest {
		total += 1 + Count(n.Children)
	}
	return total
}

func newNode(c *models.Comment) *Node {
	return &Node{
		ID:       c.ID,
		PostID:   c.PostID,
		ParentID: c.ParentID,
		Author: Author{
			ID:        c.UserID,
			Username:  c.User.Username,
			AvatarURL: c.User.AvatarURL,
		},
		Content:    c.Content,
		IsApproved: c.IsApproved,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
		Children:   make([]*Node, 0),
	}
}
