package seed

import (
	"context"
	"testing"

	"quill/internal/models"
	"quill/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTags(t *testing.T) {
	names := make([]string, 0, len(DefaultTags))
	for _, def := range DefaultTags {
		names = append(names, def.Name)
	}
	assert.Equal(t, []string{
		"Business Analysis", "Technology", "Finance", "Psychology",
		"Stories", "Over Coffee Talk", "Self-Development",
	}, names)
	assert.Equal(t, "over-coffee-talk", DefaultTags[5].Slug)
	assert.Equal(t, "self-development", DefaultTags[6].Slug)
}

func TestParseTags_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"malformed", "tags: [name"},
		{"missing name", "tags:\n  - slug: x\n"},
		{"duplicate slug", "tags:\n  - name: Go\n  - name: GO\n"},
		{"unsluggable", "tags:\n  - name: '!!!'\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTags([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestParseTags_KeepsExplicitSlug(t *testing.T) {
	defs, err := ParseTags([]byte("tags:\n  - name: Golang\n    slug: go\n"))
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "go", defs[0].Slug)
}

func TestTags_Idempotent(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	created, err := Tags(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, len(DefaultTags), created)

	created, err = Tags(ctx, db)
	require.NoError(t, err)
	assert.Zero(t, created)

	var count int64
	require.NoError(t, db.Model(&models.Tag{}).Count(&count).Error)
	assert.EqualValues(t, len(DefaultTags), count)
}

func TestTags_SkipsExistingSlug(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.CreateTag(t, db, "Tech", "technology")

	created, err := Tags(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, len(DefaultTags)-1, created)

	var tag models.Tag
	require.NoError(t, db.Where("slug = ?", "technology").First(&tag).Error)
	assert.Equal(t, "Tech", tag.Name)
}
