package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var clerkKey = []byte("clerk-signing-key-for-tests-0001")

func clerkSecret() string {
	return "whsec_" + base64.StdEncoding.EncodeToString(clerkKey)
}

func signedClerkRequest(t *testing.T, payload string) *http.Request {
	t.Helper()
	id := "msg_2abc"
	ts := strconv.FormatInt(time.Now().Unix(), 10)

	mac := hmac.New(sha256.New, clerkKey)
	fmt.Fprintf(mac, "%s.%s.%s", id, ts, payload)
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	r := httptest.NewRequest(http.MethodPost, "/v1/webhooks/clerk", strings.NewReader(payload))
	r.Header.Set("svix-id", id)
	r.Header.Set("svix-timestamp", ts)
	r.Header.Set("svix-signature", "v1,"+sig)
	return r
}

const userCreated = `{"type":"user.created","data":{"id":"user_29w83sxmDNGwOuEthce5gg56FcC","email_addresses":[{"email_address":"reader@example.com"}]}}`

func TestClerkHandler(t *testing.T) {
	t.Run("user created registers account", func(t *testing.T) {
		accounts := &fakeAccounts{}
		h, err := NewClerkHandler(clerkSecret(), accounts, nil)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		h.Handle(w, signedClerkRequest(t, userCreated))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"user_29w83sxmDNGwOuEthce5gg56FcC|reader@example.com"}, accounts.registers)
	})

	t.Run("replay is a no-op", func(t *testing.T) {
		accounts := &fakeAccounts{}
		h, err := NewClerkHandler(clerkSecret(), accounts, nil)
		require.NoError(t, err)

		for range 2 {
			w := httptest.NewRecorder()
			h.Handle(w, signedClerkRequest(t, userCreated))
			assert.Equal(t, http.StatusOK, w.Code)
		}
		assert.Len(t, accounts.registers, 1)
	})

	t.Run("other events ignored", func(t *testing.T) {
		accounts := &fakeAccounts{}
		h, err := NewClerkHandler(clerkSecret(), accounts, nil)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		h.Handle(w, signedClerkRequest(t, `{"type":"user.updated","data":{"id":"user_1"}}`))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, accounts.registers)
	})

	t.Run("bad signature", func(t *testing.T) {
		accounts := &fakeAccounts{}
		h, err := NewClerkHandler(clerkSecret(), accounts, nil)
		require.NoError(t, err)

		r := signedClerkRequest(t, userCreated)
		r.Header.Set("svix-signature", "v1,"+base64.StdEncoding.EncodeToString([]byte("forged")))
		w := httptest.NewRecorder()
		h.Handle(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, accounts.registers)
	})

	t.Run("missing headers", func(t *testing.T) {
		h, err := NewClerkHandler(clerkSecret(), &fakeAccounts{}, nil)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		h.Handle(w, httptest.NewRequest(http.MethodPost, "/v1/webhooks/clerk", strings.NewReader(userCreated)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("store failure still acknowledged", func(t *testing.T) {
		h, err := NewClerkHandler(clerkSecret(), &fakeAccounts{err: errors.New("db down")}, nil)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		h.Handle(w, signedClerkRequest(t, userCreated))

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestNewClerkHandler_BadSecret(t *testing.T) {
	_, err := NewClerkHandler("whsec_!!!not-base64", &fakeAccounts{}, nil)
	assert.Error(t, err)
}
