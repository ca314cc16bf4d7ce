package database

import (
	"testing"

	modelspkg "quill/internal/models"

	"github.com/stretchr/testify/require"
)

func TestPersistentModels_IncludesJoinEntities(t *testing.T) {
	var hasPostTag, hasFollow, hasPush bool
	for _, model := range PersistentModels() {
		switch model.(type) {
		case *modelspkg.PostTag:
			hasPostTag = true
		case *modelspkg.Follow:
			hasFollow = true
		case *modelspkg.PushSubscription:
			hasPush = true
		}
	}
	require.True(t, hasPostTag, "PersistentModels should include PostTag")
	require.True(t, hasFollow, "PersistentModels should include Follow")
	require.True(t, hasPush, "PersistentModels should include PushSubscription")
}
