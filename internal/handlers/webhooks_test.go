package handlers_test

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/studydeck/studydeck/internal/handlers"
	"github.com/studydeck/studydeck/internal/models"
	"gorm.io/gorm"
)

// Test signing secret in the provider's whsec_<base64-key> format
const testWebhookSecret = "whsec_MfKQ9r8GKYqrTwjUPD8ILPZIo2LaLaSw"

// signPayload produces the three signature headers the provider sends:
// HMAC-SHA256 over "id.timestamp.body" with the decoded secret.
func signPayload(t *testing.T, msgID string, timestamp time.Time, body []byte) (string, string) {
	t.Helper()

	key, err := base64.StdEncoding.DecodeString(testWebhookSecret[len("whsec_"):])
	if err != nil {
		t.Fatalf("Failed to decode test secret: %v", err)
	}

	ts := fmt.Sprintf("%d", timestamp.Unix())
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(msgID + "." + ts + "." + string(body)))
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return ts, "v1," + sig
}

func newWebhookApp(db *gorm.DB) *fiber.App {
	app := fiber.New()
	h := &handlers.WebhookHandler{DB: db, Secret: testWebhookSecret}
	app.Post("/api/webhooks/identity", h.HandleIdentityEvent)
	return app
}

func postWebhook(t *testing.T, app *fiber.App, msgID string, body []byte, tamper bool) map[string]interface{} {
	t.Helper()

	ts, sig := signPayload(t, msgID, time.Now(), body)
	if tamper {
		sig = "v1,aW52YWxpZC1zaWduYXR1cmU="
	}

	req := httptest.NewRequest("POST", "/api/webhooks/identity", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("svix-id", msgID)
	req.Header.Set("svix-timestamp", ts)
	req.Header.Set("svix-signature", sig)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute webhook request: %v", err)
	}

	var result map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&result)
	if result == nil {
		result = map[string]interface{}{}
	}
	result["__status"] = resp.StatusCode
	return result
}

func TestWebhookUserLifecycle(t *testing.T) {
	db := setupTestDB(t)
	app := newWebhookApp(db)

	created := postWebhook(t, app, "msg-1", []byte(`{
		"type": "user.created",
		"data": {
			"id": "ext-hook",
			"primaryEmail": "hook@example.com",
			"firstName": "Hook",
			"lastName": "User"
		}
	}`), false)
	if created["__status"] != 200 {
		t.Fatalf("Expected 200, got %v", created)
	}

	var user models.User
	if err := db.Where("external_id = ?", "ext-hook").First(&user).Error; err != nil {
		t.Fatalf("Expected provisioned user: %v", err)
	}
	if user.Email != "hook@example.com" || user.Plan != models.PlanFree {
		t.Errorf("Unexpected user row: %+v", user)
	}

	// Update carries a plan change
	updated := postWebhook(t, app, "msg-2", []byte(`{
		"type": "user.updated",
		"data": {
			"id": "ext-hook",
			"primaryEmail": "hook@example.com",
			"plan": "pro"
		}
	}`), false)
	if updated["__status"] != 200 {
		t.Fatalf("Expected 200, got %v", updated)
	}
	db.Where("external_id = ?", "ext-hook").First(&user)
	if user.Plan != models.PlanPro {
		t.Errorf("Expected plan updated to pro, got %q", user.Plan)
	}

	// Delete removes the row
	deleted := postWebhook(t, app, "msg-3", []byte(`{
		"type": "user.deleted",
		"data": {"id": "ext-hook"}
	}`), false)
	if deleted["__status"] != 200 {
		t.Fatalf("Expected 200, got %v", deleted)
	}
	var count int64
	db.Model(&models.User{}).Where("external_id = ?", "ext-hook").Count(&count)
	if count != 0 {
		t.Error("Expected user removed after user.deleted")
	}

	// Every event left an audit row
	var events int64
	db.Model(&models.WebhookEvent{}).Count(&events)
	if events != 3 {
		t.Errorf("Expected 3 audit rows, got %d", events)
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	db := setupTestDB(t)
	app := newWebhookApp(db)

	result := postWebhook(t, app, "msg-bad", []byte(`{
		"type": "user.created",
		"data": {"id": "ext-forged", "primaryEmail": "forged@example.com"}
	}`), true)
	if result["__status"] != 400 {
		t.Fatalf("Expected 400 for tampered signature, got %v", result)
	}

	// No state change of any kind
	var users, events int64
	db.Model(&models.User{}).Count(&users)
	db.Model(&models.WebhookEvent{}).Count(&events)
	if users != 0 || events != 0 {
		t.Errorf("Expected no rows after rejected delivery, got %d users %d events", users, events)
	}
}

func TestWebhookRedeliveryIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	app := newWebhookApp(db)

	body := []byte(`{
		"type": "user.created",
		"data": {"id": "ext-redeliver", "primaryEmail": "re@example.com"}
	}`)

	first := postWebhook(t, app, "msg-dup", body, false)
	if first["__status"] != 200 {
		t.Fatalf("Expected 200 on first delivery, got %v", first)
	}

	second := postWebhook(t, app, "msg-dup", body, false)
	if second["__status"] != 200 || second["duplicate"] != true {
		t.Fatalf("Expected duplicate acknowledgement, got %v", second)
	}

	var users, events int64
	db.Model(&models.User{}).Where("external_id = ?", "ext-redeliver").Count(&users)
	db.Model(&models.WebhookEvent{}).Where("event_id = ?", "msg-dup").Count(&events)
	if users != 1 || events != 1 {
		t.Errorf("Expected one user and one audit row, got %d users %d events", users, events)
	}
}

func TestWebhookUnknownEventAcknowledged(t *testing.T) {
	db := setupTestDB(t)
	app := newWebhookApp(db)

	result := postWebhook(t, app, "msg-unknown", []byte(`{
		"type": "organization.created",
		"data": {"id": "org-1"}
	}`), false)
	if result["__status"] != 200 {
		t.Fatalf("Expected unknown events acknowledged, got %v", result)
	}

	var users int64
	db.Model(&models.User{}).Count(&users)
	if users != 0 {
		t.Errorf("Expected no user rows for unknown event, got %d", users)
	}
}
