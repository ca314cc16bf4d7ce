package seed

import (
	"context"
	_ "embed"
	"fmt"

	"quill/internal/content"
	"quill/internal/models"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed tags.yml
var tagsYAML []byte

// TagDef is a built-in tag. Slug is derived from Name when left blank.
type TagDef struct {
	Name string `yaml:"name"`
	Slug string `yaml:"slug"`
}

// DefaultTags is the built-in tag catalog.
var DefaultTags = mustParseTags(tagsYAML)

func mustParseTags(data []byte) []TagDef {
	defs, err := ParseTags(data)
	if err != nil {
		panic(fmt.Sprintf("seed: built-in tags: %v", err))
	}
	return defs
}

// ParseTags decodes a YAML tag catalog of the form {tags: [{name, slug}]}.
func ParseTags(data []byte) ([]TagDef, error) {
	var doc struct {
		Tags []TagDef `yaml:"tags"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}

	seen := make(map[string]bool, len(doc.Tags))
	for i := range doc.Tags {
		def := &doc.Tags[i]
		if def.Name == "" {
			return nil, fmt.Errorf("tag %d has no name", i)
		}
		if def.Slug == "" {
			def.Slug = content.Slugify(def.Name)
		}
		if def.Slug == "" || seen[def.Slug] {
			return nil, fmt.Errorf("tag %q has an empty or duplicate slug", def.Name)
		}
		seen[def.Slug] = true
	}
	return doc.Tags, nil
}

// Tags inserts the built-in tags that are missing and returns how many were
// created. Running it again is a no-op.
func Tags(ctx context.Context, db *gorm.DB) (int, error) {
	return insertTags(ctx, db, DefaultTags)
}

func insertTags(ctx context.Context, db *gorm.DB, defs []TagDef) (int, error) {
	created := 0
	for _, def := range defs {
		tag := models.Tag{Name: def.Name, Slug: def.Slug}
		res := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&tag)
		if res.Error != nil {
			return created, fmt.Errorf("seed tag %s: %w", def.Slug, res.Error)
		}
		created += int(res.RowsAffected)
	}
	return created, nil
}
