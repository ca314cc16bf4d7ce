package notifications

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"quill/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func browserSubscription(t *testing.T, endpoint string) models.PushSubscription {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	secret := make([]byte, 16)
	_, err = rand.Read(secret)
	require.NoError(t, err)
	return models.PushSubscription{
		ID:       1,
		UserID:   1,
		Endpoint: endpoint,
		P256dh:   base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		Auth:     base64.RawURLEncoding.EncodeToString(secret),
	}
}

func TestWebPushSender_ReportsStatus(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"created", http.StatusCreated, false},
		{"gone", http.StatusGone, true},
		{"server error", http.StatusInternalServerError, true},
	}

	pub, priv, err := GenerateVAPIDKeys()
	require.NoError(t, err)
	require.NotEmpty(t, pub)
	require.NotEmpty(t, priv)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				assert.Equal(t, "aes128gcm", r.Header.Get("Content-Encoding"))
				assert.Contains(t, r.Header.Get("Authorization"), "vapid")
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			sender := NewPushSender(VAPIDConfig{PublicKey: pub, PrivateKey: priv, Subject: "mailto:ops@example.com"}, srv.Client())
			status, err := sender.Send(context.Background(), browserSubscription(t, srv.URL+"/push/abc"), []byte(`{"title":"hi"}`))

			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, int32(1), hits.Load())
		})
	}
}

func TestNewPushSender_WithoutKeysIsDisabled(t *testing.T) {
	sender := NewPushSender(VAPIDConfig{PublicKey: "only-public"}, nil)
	status, err := sender.Send(context.Background(), models.PushSubscription{}, nil)
	assert.Zero(t, status)
	assert.ErrorIs(t, err, ErrPushDisabled)
}

func TestNewPushPayload(t *testing.T) {
	raw, err := NewPushPayload(&models.Notification{ID: 12, Type: models.NotificationTypeLike, Title: "Ada liked your post", Message: "Hello"})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "Ada liked your post", got["title"])
	assert.Equal(t, "Hello", got["body"])
	assert.Equal(t, "/icons/icon-192x192.png", got["icon"])
	assert.Equal(t, "/icons/icon-192x192.png", got["badge"])

	data := got["data"].(map[string]any)
	assert.Equal(t, "/", data["url"])
	assert.Equal(t, float64(12), data["notificationId"])
	assert.Equal(t, "like", data["type"])
}
